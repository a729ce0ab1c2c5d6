package badger

import (
	"fmt"

	"github.com/rcliao/memori-store/internal/model"
)

// Key prefixes for different document types
const (
	chatPrefix      = "chat"
	shortTermPrefix = "stm"
	longTermPrefix  = "ltm"
	chatIDPrefix    = "chatid"
	memoryIDPrefix  = "memid"
	schemaKey       = "meta/schema_version"
)

func prefixFor(kind model.Kind) (string, error) {
	switch kind {
	case model.KindChat:
		return chatPrefix, nil
	case model.KindShortTerm:
		return shortTermPrefix, nil
	case model.KindLongTerm:
		return longTermPrefix, nil
	}
	return "", fmt.Errorf("%w: %q", model.ErrInvalidKind, kind)
}

// makeNamespacePrefix generates the scan prefix for one namespace.
// The namespace is quoted so "a" can never prefix-match "a/b".
// Format: prefix/"namespace"/
func makeNamespacePrefix(prefix, ns string) []byte {
	return []byte(fmt.Sprintf("%s/%q/", prefix, ns))
}

// makeDocKey generates the key of a document.
// Format: prefix/"namespace"/id
func makeDocKey(prefix, ns, id string) []byte {
	return append(makeNamespacePrefix(prefix, ns), id...)
}

// makeChatIDKey generates the global uniqueness key for a chat_id.
// The value is the document key.
func makeChatIDKey(chatID string) []byte {
	return []byte(chatIDPrefix + "/" + chatID)
}

// makeMemoryIDKey generates the uniqueness key for a memory_id within one
// memory collection. The value is the document key.
// Format: memid/prefix/id
func makeMemoryIDKey(prefix, id string) []byte {
	return []byte(memoryIDPrefix + "/" + prefix + "/" + id)
}
