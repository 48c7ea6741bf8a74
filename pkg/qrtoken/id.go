package qrtoken

import (
	"crypto/rand"
	"math/big"
	"time"
)

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewEmergencyID returns EMG + second-precision timestamp + 6 random
// characters from [A-Z0-9]. Uniqueness is probabilistic; the lifecycle store
// rejects the rare collision on insert and the caller regenerates.
func NewEmergencyID() string {
	return newEmergencyIDAt(time.Now())
}

func newEmergencyIDAt(now time.Time) string {
	suffix := make([]byte, 6)
	max := big.NewInt(int64(len(idAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the platform RNG is broken;
			// there is nothing sensible to fall back to.
			panic(err)
		}
		suffix[i] = idAlphabet[n.Int64()]
	}
	return "EMG" + now.Format("20060102150405") + string(suffix)
}
