package txt

import (
	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/ru"
	"github.com/go-playground/locales/uk"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var supported = []language.Tag{language.English, language.Russian, language.Ukrainian}

var matcher = language.NewMatcher(supported)

var translators = map[language.Tag]locales.Translator{
	language.English:   en.New(),
	language.Russian:   ru.New(),
	language.Ukrainian: uk.New(),
}

var messages = map[string]map[language.Tag]string{
	"title.newRoster": {
		language.English:   "New Roster",
		language.Russian:   "Новый график служения",
		language.Ukrainian: "Новий графік служіння",
	},
	"title.rosterModified": {
		language.English:   "Roster Modified",
		language.Russian:   "График служения изменен",
		language.Ukrainian: "Графік служіння змінено",
	},
	"title.removedFromRoster": {
		language.English:   "Removed From Roster",
		language.Russian:   "Вы удалены из графика",
		language.Ukrainian: "Вас видалено з графіка",
	},
	"title.assignmentDeclined": {
		language.English:   "Assignment Declined",
		language.Russian:   "Отказ от служения",
		language.Ukrainian: "Відмова від служіння",
	},
	"text.assigned": {
		language.English:   "You are on the roster for %s on %s.",
		language.Russian:   "Вы в графике служения: %s, %s.",
		language.Ukrainian: "Ви в графіку служіння: %s, %s.",
	},
	"text.unassigned": {
		language.English:   "You are no longer on the roster for %s on %s.",
		language.Russian:   "Вас больше нет в графике: %s, %s.",
		language.Ukrainian: "Вас більше немає в графіку: %s, %s.",
	},
	"text.broadcast": {
		language.English:   "Roster for %s on %s (%s) was published with %d assignments.",
		language.Russian:   "График %s на %s (%s) опубликован, назначений: %d.",
		language.Ukrainian: "Графік %s на %s (%s) опубліковано, призначень: %d.",
	},
	"text.declined": {
		language.English:   "%s declined their assignment for %s on %s.",
		language.Russian:   "%s отказался(-ась) от служения: %s, %s.",
		language.Ukrainian: "%s відмовився(-лась) від служіння: %s, %s.",
	},
	"text.leadership": {
		language.English:   "Leadership",
		language.Russian:   "Ведущие",
		language.Ukrainian: "Ведучі",
	},
	"text.supportTeam": {
		language.English:   "Support team",
		language.Russian:   "Команда поддержки",
		language.Ukrainian: "Команда підтримки",
	},
	"text.greetingTeam": {
		language.English:   "Greeting team",
		language.Russian:   "Встреча гостей",
		language.Ukrainian: "Зустріч гостей",
	},
	"text.specialAppearances": {
		language.English:   "Special appearances",
		language.Russian:   "Особые выступления",
		language.Ukrainian: "Особливі виступи",
	},
	"text.moreInfo": {
		language.English:   "More info",
		language.Russian:   "Подробнее",
		language.Ukrainian: "Детальніше",
	},
	"role.officiant": {
		language.English:   "Officiant",
		language.Russian:   "Ведущий служения",
		language.Ukrainian: "Ведучий служіння",
	},
	"role.conductor": {
		language.English:   "Conductor",
		language.Russian:   "Регент",
		language.Ukrainian: "Регент",
	},
	"role.openingWord": {
		language.English:   "Opening word",
		language.Russian:   "Вступительное слово",
		language.Ukrainian: "Вступне слово",
	},
	"role.offeringPrayer": {
		language.English:   "Offering prayer",
		language.Russian:   "Молитва о пожертвованиях",
		language.Ukrainian: "Молитва про пожертви",
	},
	"appearance.greeting": {
		language.English:   "greeting",
		language.Russian:   "приветствие",
		language.Ukrainian: "привітання",
	},
	"appearance.worship": {
		language.English:   "worship",
		language.Russian:   "прославление",
		language.Ukrainian: "прославлення",
	},
	"appearance.testimony": {
		language.English:   "testimony",
		language.Russian:   "свидетельство",
		language.Ukrainian: "свідчення",
	},
}

var cat = func() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, translations := range messages {
		for tag, msg := range translations {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}()

func match(lang string) language.Tag {
	_, i, _ := matcher.Match(language.Make(lang))
	return supported[i]
}

// Get returns the message registered under key in lang, formatted with args.
// Unknown languages fall back to English.
func Get(key, lang string, args ...any) string {
	p := message.NewPrinter(match(lang), message.Catalog(cat))
	return p.Sprintf(key, args...)
}

func GetTranslator(lang string) locales.Translator {
	return translators[match(lang)]
}
