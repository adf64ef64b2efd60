package domain

// Confession is the top-level religious organization that groups donation options.
type Confession struct {
	ID   int64  `bson:"_id" json:"id"`
	Name string `bson:"name" json:"name"`
}
