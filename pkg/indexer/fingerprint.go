package indexer

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
)

// HashContent returns the hex xxhash64 of a file's bytes.
func HashContent(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// metadataMatches is the fast path: same size and modification time means
// the content was not touched and need not be read.
func metadataMatches(prev models.Fingerprint, f SourceFile) bool {
	return prev.Hash != "" && prev.Size == f.Size && prev.ModTime == f.ModTime.UnixNano()
}

func fingerprintOf(f SourceFile, hash string) models.Fingerprint {
	return models.Fingerprint{Size: f.Size, ModTime: f.ModTime.UnixNano(), Hash: hash}
}
