// Package vless renders client connection URLs for VLESS over Reality.
package vless

import (
	"fmt"
	"net/url"
)

// RealityParams holds the server-side Reality parameters shared by every
// issued URL. Secrets are per user, these are per deployment.
type RealityParams struct {
	ServerAddr string
	ServerPort int
	PublicKey  string
	SNI        string
	ShortID    string
}

// BuildURL renders the importable connection URL for one credential. The
// label ends up as the profile name in the client app.
func BuildURL(secret, label string, p RealityParams) string {
	return fmt.Sprintf(
		"vless://%s@%s:%d"+
			"?encryption=none&flow=xtls-rprx-vision&security=reality"+
			"&sni=%s&fp=chrome&pbk=%s&sid=%s&type=tcp"+
			"#%s",
		secret, p.ServerAddr, p.ServerPort,
		url.QueryEscape(p.SNI), url.QueryEscape(p.PublicKey), url.QueryEscape(p.ShortID),
		url.PathEscape(label),
	)
}
