// Package user holds the account types served by the API.
package user

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"recipe-planner/internal/recipe"
)

type Gender string

const (
	GenderUnspecified Gender = ""
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
)

// ParseGender accepts "male", "female" or "" in any case.
func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToLower(strings.TrimSpace(s))); g {
	case GenderUnspecified, GenderMale, GenderFemale:
		return g, nil
	default:
		return "", fmt.Errorf("invalid gender %q: want male or female", s)
	}
}

func (g Gender) String() string {
	if g == GenderUnspecified {
		return "Not specified"
	}
	return string(g)
}

// Summary is a user as it appears in follower lists.
type Summary struct {
	ID           string `json:"_id"`
	Username     string `json:"username,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*s = Summary{ID: id}
		return nil
	}
	type plain Summary
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Summary(p)
	return nil
}

// SummaryList decodes anything that is not an array as an empty list.
type SummaryList []Summary

func (l *SummaryList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = nil
		return nil
	}
	out := make(SummaryList, 0, len(raw))
	for _, item := range raw {
		var s Summary
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		out = append(out, s)
	}
	*l = out
	return nil
}

// User is the signed-in account.
type User struct {
	ID           string      `json:"_id"`
	Username     string      `json:"username"`
	Email        string      `json:"email,omitempty"`
	Gender       Gender      `json:"gender,omitempty"`
	ProfileImage string      `json:"profileImage,omitempty"`
	Recipes      recipe.List `json:"recipes"`
	Followers    SummaryList `json:"followers"`
	Following    SummaryList `json:"following"`
}

// Update carries the editable profile fields. Empty fields are left alone.
type Update struct {
	Username         string
	Email            string
	Gender           Gender
	ProfileImageName string
	ProfileImage     []byte
}

func (u Update) IsZero() bool {
	return u.Username == "" && u.Email == "" && u.Gender == "" && len(u.ProfileImage) == 0
}

// Credentials are sent to sign in or sign up.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}
