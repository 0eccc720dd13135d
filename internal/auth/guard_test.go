package auth

import "testing"

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name  string
		owner string
		id    *Identity
		want  Decision
	}{
		{"no identity", "alice@umn.edu", nil, RequiresIdentity},
		{"identity without email", "alice@umn.edu", &Identity{Subject: "uid"}, RequiresIdentity},
		{"owner", "alice@umn.edu", &Identity{Email: "alice@umn.edu"}, Allow},
		{"owner different case", "Alice@UMN.edu", &Identity{Email: "alice@umn.edu"}, Allow},
		{"someone else", "alice@umn.edu", &Identity{Email: "bob@umn.edu"}, Forbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Authorize(tt.owner, tt.id); got != tt.want {
				t.Errorf("Authorize() = %v, want %v", got, tt.want)
			}
		})
	}
}
