package auth

import (
	"math/rand/v2"
	"strconv"
	"strings"
)

// Challenge is the numeric code a user must echo back after a correct
// password.
type Challenge struct {
	Code int
}

func NewChallenge() Challenge {
	return Challenge{Code: 1000 + rand.IntN(9000)}
}

func (challenge Challenge) String() string {
	return strconv.Itoa(challenge.Code)
}

// Check compares the trimmed input with the code. Non-numeric input fails.
func (challenge Challenge) Check(input string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	return err == nil && n == challenge.Code
}
