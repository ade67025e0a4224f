package smokeshow

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	keySeedSize    = 50
	reportInterval = 100_000
)

// validKey reports whether a digest starts with 22 zero bits, the proof of work
// smokeshow asks of a site creation key.
func validKey(digest [sha256.Size]byte) bool {
	return digest[0] == 0 && digest[1] == 0 && digest[2] < 4
}

// GenerateKey searches for a random key whose SHA-256 digest is accepted by smokeshow.
// This takes a few million attempts on average.
func GenerateKey(ctx context.Context, logger *slog.Logger) (string, error) {
	logger.Info("generating a smokeshow key with a valid hash, this might take a minute")

	seed := make([]byte, keySeedSize)
	for attempts := 1; ; attempts++ {
		if attempts%reportInterval == 0 {
			if err := ctx.Err(); err != nil {
				return "", fmt.Errorf("generate smokeshow key: %w", err)
			}
			logger.Debug("still searching for a smokeshow key", "attempts", humanize.Comma(int64(attempts)))
		}
		if _, err := rand.Read(seed); err != nil {
			return "", fmt.Errorf("generate smokeshow key: %w", err)
		}
		if validKey(sha256.Sum256(seed)) {
			logger.Info("smokeshow key found", "attempts", humanize.Comma(int64(attempts)))
			return strings.TrimRight(base64.StdEncoding.EncodeToString(seed), "="), nil
		}
	}
}
