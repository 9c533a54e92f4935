package session

import (
	"crypto/sha256"
	"encoding/binary"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"worldip/internal/ownership"
)

var adjectives = []string{
	"crypto", "based", "defi", "degen", "alpha", "based", "diamond", "eth",
	"smart", "chain", "dao", "anon", "meta", "nft", "proof", "stake",
	"token", "block", "hash", "mint",
}

var nouns = []string{
	"whale", "degen", "trader", "holder", "miner", "staker", "builder",
	"wizard", "punk", "pepe", "wojak", "dex", "fren", "ser", "defi",
	"gwei", "chad", "hodler", "dapp",
}

// GenerateUsername builds a display name from an adjective, a noun and the
// last four characters of the address. The words are picked from a hash of
// the address, so the same wallet always gets the same name.
func GenerateUsername(addr ownership.Address) string {
	raw := addr.String()
	sum := sha256.Sum256([]byte(raw))
	adj := adjectives[binary.BigEndian.Uint32(sum[0:4])%uint32(len(adjectives))]
	noun := nouns[binary.BigEndian.Uint32(sum[4:8])%uint32(len(nouns))]

	suffix := raw
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	title := cases.Title(language.English)
	return title.String(adj) + title.String(noun) + suffix
}
