package domain

// Actor is the acting identity attached to mutating operations. It is used
// purely for audit attribution; authorization happens outside this core.
type Actor struct {
	Name    string
	Contact string
}

// SystemActor is the default attribution when a request carries no identity.
func SystemActor() Actor {
	return Actor{Name: "system", Contact: ""}
}

// OrSystem returns the actor itself, or the system actor when empty.
func (a Actor) OrSystem() Actor {
	if a.Name == "" {
		return SystemActor()
	}
	return a
}

// IsSystem reports whether this is the default system attribution.
func (a Actor) IsSystem() bool { return a.Name == "" || a.Name == "system" }
