package vectorindex

// Match is one scored row of a similarity search.
type Match struct {
	ChunkID string
	Score   float32
}

// Index stores chunk vectors and answers nearest-neighbour queries by
// cosine similarity. Implementations normalize vectors on insert so the
// score reduces to a dot product.
type Index interface {
	Insert(chunkID string, vector []float32) error
	Remove(chunkID string) error
	Search(query []float32, k int) ([]Match, error)
	Size() int
	Dimension() int
}

// Persistent is implemented by indexes that can flush their state to
// durable storage.
type Persistent interface {
	Save() error
}
