package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/michaelbrown/rentdesk/internal/directory"
)

// confidenceThreshold is the minimum match score a search hit needs before
// the tool will act on it without asking the operator.
const confidenceThreshold = 70

// NewCustomerSearch returns the search_customer_by_name handler. A single
// confident hit resolves the conversation's current customer; multiple
// confident hits are reported back as an ambiguity for the model to resolve
// with the operator.
func NewCustomerSearch(store directory.Store, session *Session) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		name, _ := args["name"].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("'name' argument must be a non-empty string")
		}

		matches, err := store.SearchCustomersByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("customer search: %w", err)
		}

		var confident []directory.Match
		for _, m := range matches {
			if m.Score >= confidenceThreshold {
				confident = append(confident, m)
			}
		}

		switch {
		case len(confident) == 0:
			return map[string]any{
				"error":   "customer_not_found",
				"message": fmt.Sprintf("No customer matching %q was found.", name),
			}, nil

		case len(confident) > 1:
			options := make([]map[string]any, len(confident))
			for i, m := range confident {
				options[i] = customerPayload(m.Customer)
			}
			return map[string]any{
				"error":   "ambiguous_customer",
				"message": fmt.Sprintf("%d customers match %q. Ask which one is meant.", len(confident), name),
				"options": options,
			}, nil
		}

		match := confident[0]
		session.SetCurrentCustomer(match.ID)
		return map[string]any{
			"success":  true,
			"customer": customerPayload(match.Customer),
		}, nil
	}
}

func customerPayload(c directory.Customer) map[string]any {
	return map[string]any{
		"id":    c.ID,
		"name":  c.FullName,
		"phone": c.Phone,
		"email": c.Email,
	}
}
