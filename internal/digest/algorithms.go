package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Algorithm binds a canonical algorithm name to its constructor.
type Algorithm struct {
	Name string
	Size int // digest length in bytes
	New  func() hash.Hash
}

var algorithms = map[string]Algorithm{}

// aliases maps alternative spellings (upper-cased) to canonical names.
var aliases = map[string]string{}

func register(name string, size int, fn func() hash.Hash, alias ...string) {
	algorithms[strings.ToUpper(name)] = Algorithm{Name: name, Size: size, New: fn}
	for _, a := range alias {
		aliases[strings.ToUpper(a)] = strings.ToUpper(name)
	}
}

func init() {
	register("MD5", md5.Size, md5.New)
	register("SHA-1", sha1.Size, sha1.New, "SHA1", "SHA")
	register("SHA-224", sha256.Size224, sha256.New224, "SHA224")
	register("SHA-256", sha256.Size, sha256.New, "SHA256")
	register("SHA-384", sha512.Size384, sha512.New384, "SHA384")
	register("SHA-512", sha512.Size, sha512.New, "SHA512")
	register("SHA-512/224", sha512.Size224, sha512.New512_224, "SHA512-224", "SHA-512-224")
	register("SHA-512/256", sha512.Size256, sha512.New512_256, "SHA512-256", "SHA-512-256")

	register("SHA3-224", 28, sha3.New224, "SHA-3-224")
	register("SHA3-256", 32, sha3.New256, "SHA-3-256")
	register("SHA3-384", 48, sha3.New384, "SHA-3-384")
	register("SHA3-512", 64, sha3.New512, "SHA-3-512")

	register("BLAKE2b-256", blake2b.Size256, func() hash.Hash {
		h, _ := blake2b.New256(nil) // only fails for keys longer than 64 bytes
		return h
	}, "BLAKE2B256")
	register("BLAKE2b-512", blake2b.Size, func() hash.Hash {
		h, _ := blake2b.New512(nil)
		return h
	}, "BLAKE2B512")

	register("BLAKE3", 32, func() hash.Hash { return blake3.New() }, "BLAKE3-256")
}

// Lookup resolves name case-insensitively, accepting the registered aliases.
func Lookup(name string) (Algorithm, bool) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	a, ok := algorithms[key]
	return a, ok
}

// Algorithms returns the canonical names of all supported algorithms, sorted.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for _, a := range algorithms {
		names = append(names, a.Name)
	}
	sort.Strings(names)
	return names
}
