package platform

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const uidAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const uidEntropyLength = 10

// NewID returns a UUID primary key.
func NewID() string {
	return uuid.New().String()
}

// NewUID returns a prefixed identifier of the form "<prefix>-<entropy>",
// used for externally visible resource names (account realms, cluster
// names). The entropy part is lowercase alphanumeric, which keeps UIDs
// valid as realm names and DNS labels.
func NewUID(prefix string) string {
	b := make([]byte, uidEntropyLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = uidAlphabet[b[i]%byte(len(uidAlphabet))]
	}
	return prefix + "-" + string(b)
}
