package auth

import (
	"strings"
	"unicode"

	"github.com/nbutton23/zxcvbn-go"
	"github.com/nbutton23/zxcvbn-go/match"
)

const (
	// MaxPasswordLength is the longest password accepted at the edge.
	MaxPasswordLength = 128

	// maxScoredRunes bounds the input handed to zxcvbn, whose cost grows
	// steeply with length.
	maxScoredRunes = 64

	// minComposedLength is the length at which a varied password is rated
	// at least moderate.
	minComposedLength = 12
)

// Strength is the verdict of EvaluateStrength.
type Strength int

const (
	StrengthWeak Strength = iota
	StrengthModerate
	StrengthStrong
)

func (s Strength) String() string {
	switch s {
	case StrengthStrong:
		return "strong"
	case StrengthModerate:
		return "moderate"
	default:
		return "weak"
	}
}

const WeakPasswordMessage = "Password is not strong enough"

// StrengthIssues explains why a password was rated weak.
type StrengthIssues struct {
	Message     string   `json:"message"`
	Warning     string   `json:"warning,omitempty"`
	Suggestions []string `json:"suggestions"`
}

// PasswordStrength is the result of scoring a candidate password.
// Issues is set only when Level is StrengthWeak.
type PasswordStrength struct {
	Level  Strength
	Score  int
	Issues *StrengthIssues
}

func (p PasswordStrength) Weak() bool {
	return p.Level == StrengthWeak
}

// EvaluateStrength scores password with zxcvbn, seeding the dictionary with
// the owner's name and email so passwords derived from them are penalised.
// Scores 0-2 are weak, 3 moderate, 4 strong. Only the first maxScoredRunes
// runes are scored.
//
// zxcvbn-go rates long passwords built from several l33t words far below
// zxcvbn 4.x, so a password of at least minComposedLength runes that mixes
// upper and lower case, digits and symbols is lifted to moderate, unless it
// is one guessable pattern with decoration around it or reuses the owner's
// name or email.
func EvaluateStrength(name, email, password string) PasswordStrength {
	var inputs []string
	for _, in := range []string{name, email} {
		if in != "" {
			inputs = append(inputs, in)
		}
	}
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		inputs = append(inputs, local)
	}

	scored := truncateRunes(password, maxScoredRunes)
	result := zxcvbn.PasswordStrength(scored, inputs)

	switch {
	case result.Score >= 4:
		return PasswordStrength{Level: StrengthStrong, Score: result.Score}
	case result.Score == 3:
		return PasswordStrength{Level: StrengthModerate, Score: result.Score}
	case composed(scored, result.MatchSequence):
		return PasswordStrength{Level: StrengthModerate, Score: 3}
	}

	issues := &StrengthIssues{Message: WeakPasswordMessage}
	seen := make(map[string]bool)
	suggest := func(s string) {
		if !seen[s] {
			seen[s] = true
			issues.Suggestions = append(issues.Suggestions, s)
		}
	}

	for _, m := range result.MatchSequence {
		switch m.Pattern {
		case "dictionary":
			if m.DictionaryName == "user_inputs" {
				setWarning(issues, "Passwords based on your name or email are easy to guess")
			} else {
				setWarning(issues, "This is similar to a commonly used password")
			}
			suggest("Avoid common words and names")
		case "spatial":
			setWarning(issues, "Straight rows or patterns of keys are easy to guess")
			suggest("Use a longer keyboard pattern with more turns")
		case "repeat":
			setWarning(issues, `Repeats like "aaa" or "abcabc" are easy to guess`)
			suggest("Avoid repeated words and characters")
		case "sequence":
			setWarning(issues, `Sequences like "abc" or "6543" are easy to guess`)
			suggest("Avoid sequences")
		case "date", "year":
			setWarning(issues, "Dates are often easy to guess")
			suggest("Avoid dates and years that are associated with you")
		}
	}

	if len(password) < 12 {
		suggest("Use a longer password")
	}
	suggest("Add another word or two. Uncommon words are better")

	return PasswordStrength{Level: StrengthWeak, Score: result.Score, Issues: issues}
}

// composed reports whether password is long, uses all four character
// classes, avoids the owner's inputs and is more than a single guessable
// pattern padded with digits or symbols.
func composed(password string, seq []match.Match) bool {
	if len([]rune(password)) < minComposedLength || !allClasses(password) {
		return false
	}

	for _, m := range seq {
		if m.DictionaryName == "user_inputs" && len([]rune(m.Token)) >= 3 {
			return false
		}
	}

	core := strings.TrimFunc(password, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if core == "" {
		return false
	}
	coreSeq := zxcvbn.PasswordStrength(core, nil).MatchSequence
	return !(len(coreSeq) == 1 && coreSeq[0].Pattern != "bruteforce")
}

func allClasses(password string) bool {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return upper && lower && digit && special
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func setWarning(issues *StrengthIssues, warning string) {
	if issues.Warning == "" {
		issues.Warning = warning
	}
}
