// internal/composition/clone.go
package composition

import (
	"context"
	"fmt"
	"os"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Cloner performs shallow single-branch clones into temporary directories.
type Cloner struct {
	Token string
	// Username pairs with Token for HTTP basic auth. GitLab accepts
	// "oauth2", GitHub any non-empty name.
	Username string
	// Depth limits history; 0 clones everything.
	Depth int
}

// NewCloner creates a depth-1 Cloner authenticating with token, if any.
func NewCloner(token, username string) *Cloner {
	if username == "" {
		username = "oauth2"
	}
	return &Cloner{Token: token, Username: username, Depth: 1}
}

// Clone clones branch (the remote HEAD when empty) of cloneURL into a
// temporary directory. The caller must call cleanup when done.
func (c *Cloner) Clone(ctx context.Context, cloneURL, branch string) (dir string, cleanup func(), err error) {
	tmpDir, err := os.MkdirTemp("", "devpulse-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}

	cleanupFn := func() {
		os.RemoveAll(tmpDir)
	}

	opts := &git.CloneOptions{
		URL:          cloneURL,
		Depth:        c.Depth,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}
	if c.Token != "" {
		opts.Auth = &http.BasicAuth{
			Username: c.Username,
			Password: c.Token,
		}
	}

	if _, err := git.PlainCloneContext(ctx, tmpDir, false, opts); err != nil {
		cleanupFn()
		return "", nil, fmt.Errorf("git clone: %w", err)
	}

	return tmpDir, cleanupFn, nil
}
