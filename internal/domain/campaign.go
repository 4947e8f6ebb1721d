package domain

// Campaign is a simulated-phishing exercise. The collector only reads
// campaigns; they are managed elsewhere.
type Campaign struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
