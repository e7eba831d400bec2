package forum

type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type User struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Groups   []Group `json:"groups"`
}

// InGroup reports whether the user belongs to the named group.
func (u User) InGroup(name string) bool {
	for _, g := range u.Groups {
		if g.Name == name {
			return true
		}
	}
	return false
}
