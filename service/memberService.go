package service

import (
	"context"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/joeyave/scala-roster/entity"
)

// minSearchSimilarity is the Jaro-Winkler score a name needs to match a query
// it does not contain.
const minSearchSimilarity = 0.75

type MemberService struct {
	memberDirectory MemberDirectory
}

func NewMemberService(memberDirectory MemberDirectory) *MemberService {
	return &MemberService{
		memberDirectory: memberDirectory,
	}
}

func (s *MemberService) Resolve(ctx context.Context, ID string) (*entity.Member, error) {
	return s.memberDirectory.Resolve(ctx, ID)
}

func (s *MemberService) FindAll(ctx context.Context) ([]*entity.Member, error) {
	return s.memberDirectory.FindAll(ctx)
}

// Search ranks directory members against query by name. Substring matches
// come first, then fuzzy matches. A blank query lists members by name.
func (s *MemberService) Search(ctx context.Context, query string, limit int) ([]*entity.Member, error) {
	members, err := s.memberDirectory.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return truncate(members, limit), nil
	}

	type scored struct {
		member *entity.Member
		score  float32
	}

	var matches []scored
	for _, member := range members {
		name := strings.ToLower(member.Name)

		var score float32
		switch {
		case strings.HasPrefix(name, query) || strings.EqualFold(member.ID, query):
			score = 2
		case strings.Contains(name, query):
			score = 1.5
		default:
			similarity, err := edlib.StringsSimilarity(query, name, edlib.JaroWinkler)
			if err != nil || similarity < minSearchSimilarity {
				continue
			}
			score = similarity
		}
		matches = append(matches, scored{member: member, score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	found := make([]*entity.Member, 0, len(matches))
	for _, m := range matches {
		found = append(found, m.member)
	}
	return truncate(found, limit), nil
}

func truncate(members []*entity.Member, limit int) []*entity.Member {
	if limit > 0 && len(members) > limit {
		return members[:limit]
	}
	return members
}
