package entity

// Member is a directory record. ID is the member's contact address.
type Member struct {
	ID           string `bson:"_id" json:"id"`
	Name         string `bson:"name" json:"name"`
	Role         string `bson:"role,omitempty" json:"role,omitempty"`
	TelegramID   int64  `bson:"telegramId,omitempty" json:"-"`
	LanguageCode string `bson:"languageCode,omitempty" json:"languageCode,omitempty"`
}

func (m *Member) Ref() MemberRef {
	return MemberRef{ID: m.ID, Name: m.Name}
}
