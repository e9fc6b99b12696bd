package notifications

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp-forge/courier/pkg/models"
)

// DefaultWebappURL is used when no webapp URL is configured.
const DefaultWebappURL = "http://localhost:5002"

// URLs builds links into the web application.
type URLs struct {
	Webapp string
}

func (u URLs) base() string {
	if u.Webapp == "" {
		return DefaultWebappURL
	}
	return strings.TrimRight(u.Webapp, "/")
}

// Path joins p onto the webapp URL.
func (u URLs) Path(p string) string {
	return u.base() + "/" + strings.TrimLeft(p, "/")
}

// Post links to a post page.
func (u URLs) Post(p *models.Post) string {
	return u.Path("posts/" + url.PathEscape(p.PathID()))
}

// Comment links to a comment within its post page.
func (u URLs) Comment(p *models.Post, commentID string) string {
	return fmt.Sprintf("%s#c-%s", u.Post(p), commentID)
}

// Source links to a squad or a source page.
func (u URLs) Source(s *models.Source) string {
	if s.IsSquad() {
		return u.Path("squads/" + url.PathEscape(s.Handle))
	}
	return u.Path("sources/" + url.PathEscape(s.Handle))
}

// User links to a user profile.
func (u URLs) User(user *models.User) string {
	return u.Path(url.PathEscape(user.Username))
}
