package booking

import (
	"fmt"
	"math/rand"
	"time"
)

const confirmationLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// SyntheticConfirmationCode generates a locator in the fixed scheme used
// when the provider cannot or should not be called: three uppercase
// letters followed by three digits.
func SyntheticConfirmationCode() string {
	code := make([]byte, 6)
	for i := 0; i < 3; i++ {
		code[i] = confirmationLetters[rand.Intn(len(confirmationLetters))]
	}
	for i := 3; i < 6; i++ {
		code[i] = byte('0' + rand.Intn(10))
	}
	return string(code)
}

// SyntheticOrderID builds a locally unique order id from the clock plus a
// random disambiguator.
func SyntheticOrderID() string {
	return fmt.Sprintf("SYN-%d-%04d", time.Now().UnixNano(), rand.Intn(10000))
}
