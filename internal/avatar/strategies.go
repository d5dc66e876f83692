package avatar

import (
	"fmt"
	"net/url"
)

// Template wraps a URL builder as a non-terminal strategy.
func Template(name string, build func(handle string) string) Strategy {
	return Strategy{Name: name, URL: build}
}

// UnavatarURL builds an unavatar.io URL for the given provider ("x", "twitter", "github").
func UnavatarURL(provider, handle string) string {
	return fmt.Sprintf("https://unavatar.io/%s/%s", provider, url.PathEscape(handle))
}

// UIAvatarsURL builds the generated initials image used as the last resort.
func UIAvatarsURL(handle string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(handle) +
		"&size=400&background=FF8C00&color=fff&bold=true&format=png"
}

// Fallback is the terminal ui-avatars strategy.
func Fallback() Strategy {
	return Strategy{Name: "ui-avatars", URL: UIAvatarsURL, Terminal: true}
}

// Lookups are the optional profile-API strategies. Nil entries are skipped.
type Lookups struct {
	Talent *TalentClient
	GitHub *GitHubClient
}

// DefaultStrategies returns the production chain:
//
//	unavatar x -> unavatar twitter -> unavatar github
//	  -> [talent protocol] -> [github api] -> ui-avatars
func DefaultStrategies(l Lookups) []Strategy {
	chain := []Strategy{
		Template("unavatar-x", func(h string) string { return UnavatarURL("x", h) }),
		Template("unavatar-twitter", func(h string) string { return UnavatarURL("twitter", h) }),
		Template("unavatar-github", func(h string) string { return UnavatarURL("github", h) }),
	}
	if l.Talent != nil {
		chain = append(chain, Strategy{Name: "talent-protocol", Lookup: l.Talent.AvatarURL})
	}
	if l.GitHub != nil {
		chain = append(chain, Strategy{Name: "github-api", Lookup: l.GitHub.AvatarURL})
	}
	return append(chain, Fallback())
}
