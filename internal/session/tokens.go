package session

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/halit-vural/autorag/internal/models"
	"github.com/halit-vural/autorag/pkg/utils"
)

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

var (
	encoding    *tiktoken.Tiktoken
	encodingErr error
	encodingMu  sync.Mutex
	loadOnce    sync.Once
)

// chatLength counts whitespace separated words across the transcript.
func chatLength(history []models.Message) int {
	n := 0
	for _, m := range history {
		n += utils.WordCount(strings.TrimSpace(m.Content))
	}
	return n
}

// chatTokens counts cl100k_base tokens across the transcript.
func chatTokens(history []models.Message) (int, error) {
	loadOnce.Do(func() {
		encoding, encodingErr = tiktoken.GetEncoding("cl100k_base")
	})
	if encodingErr != nil {
		return 0, encodingErr
	}

	encodingMu.Lock()
	defer encodingMu.Unlock()

	n := 0
	for _, m := range history {
		n += len(encoding.Encode(m.Content, nil, nil))
	}
	return n, nil
}
