package anyauth

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// ProviderPreset is a pure configuration record layered over the generic
// OAuth strategy: fixed endpoints plus default scopes. Presets introduce no
// behavior of their own.
type ProviderPreset struct {
	Endpoint    oauth2.Endpoint
	UserInfoURL string
	Scopes      []string
}

var providerPresets = map[string]ProviderPreset{
	"github": {
		Endpoint:    endpoints.GitHub,
		UserInfoURL: "https://api.github.com/user",
		Scopes:      []string{"read:user", "user:email"},
	},
	"google": {
		Endpoint:    endpoints.Google,
		UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
	},
	"facebook": {
		Endpoint:    endpoints.Facebook,
		UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
		Scopes:      []string{"email", "public_profile"},
	},
	"instagram": {
		Endpoint:    endpoints.Instagram,
		UserInfoURL: "https://graph.instagram.com/me?fields=id,username",
		Scopes:      []string{"user_profile"},
	},
	"discord": {
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://discord.com/oauth2/authorize",
			TokenURL: "https://discord.com/api/oauth2/token",
		},
		UserInfoURL: "https://discord.com/api/users/@me",
		Scopes:      []string{"identify", "email"},
	},
	"tiktok": {
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://www.tiktok.com/v2/auth/authorize/",
			TokenURL: "https://open.tiktokapis.com/v2/oauth/token/",
		},
		UserInfoURL: "https://open.tiktokapis.com/v2/user/info/",
		Scopes:      []string{"user.info.basic"},
	},
}

// ProviderNames lists the built-in provider presets.
func ProviderNames() []string {
	names := make([]string, 0, len(providerPresets))
	for name := range providerPresets {
		names = append(names, name)
	}
	return names
}
