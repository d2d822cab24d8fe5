package workflow

import (
	"github.com/hariseldon84/singlebrief-full-sub000/internal/analysis"
	teamdomain "github.com/hariseldon84/singlebrief-full-sub000/internal/teammgmt/domain"
)

// RecipientsFromMembers maps active team members to query recipients, keeping their order.
// Invited and inactive members are skipped.
func RecipientsFromMembers(members []teamdomain.Member) []analysis.Recipient {
	out := make([]analysis.Recipient, 0, len(members))
	for _, m := range members {
		if m.Status != teamdomain.MemberStatusActive {
			continue
		}
		role := m.Designation
		if role == "" {
			role = m.Role
		}
		out = append(out, analysis.Recipient{
			ID:         m.ID,
			Name:       m.FullName,
			Role:       role,
			Department: m.Department,
			Channel:    m.Channel,
		})
	}
	return out
}
