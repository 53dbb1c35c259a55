package embedder

import "context"

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// LocalModel is the embeddings model served by a local Ollama instance.
const LocalModel = "nomic-embed-text"

const (
	localDimensions  = 768
	defaultDimension = 1536

	localCollection   = "auto_rag_documents_groq_ollama"
	defaultCollection = "auto_rag_documents_groq_openai"
)

// Embedder converts text into fixed-length vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
	Dimensions() int
}

// Spec describes which embedder to build for an embeddings model and where its vectors live.
type Spec struct {
	Provider   Provider
	Model      string
	Dimensions int
	Collection string
}

// Select maps an embeddings model name to its embedder, dimensions and collection.
// Each collection holds a single dimensionality, so switching models never mixes vectors.
// Names other than LocalModel take the OpenAI branch.
func Select(model string) Spec {
	if model == LocalModel {
		return Spec{
			Provider:   ProviderOllama,
			Model:      model,
			Dimensions: localDimensions,
			Collection: localCollection,
		}
	}
	return Spec{
		Provider:   ProviderOpenAI,
		Model:      model,
		Dimensions: defaultDimension,
		Collection: defaultCollection,
	}
}
