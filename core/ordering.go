package core

// Ordering is a single sort key requested by a listing caller.
type Ordering struct {
	Field     string
	Ascending bool
}

func (ord Ordering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
