package vless

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildURL(t *testing.T) {
	params := RealityParams{
		ServerAddr: "203.0.113.10",
		ServerPort: 443,
		PublicKey:  "Jincq2RErmxlKaWFtLpAl6bRdtK_vPGW9J5p_uC9dQ0",
		SNI:        "www.google.com",
		ShortID:    "f59b36643359264f",
	}

	got := BuildURL("7c41e3a0-1af4-4f38-9c3a-06b8cbd9b1a1", "Xray Reality - user_42@xray.com", params)

	assert.Equal(t,
		"vless://7c41e3a0-1af4-4f38-9c3a-06b8cbd9b1a1@203.0.113.10:443"+
			"?encryption=none&flow=xtls-rprx-vision&security=reality"+
			"&sni=www.google.com&fp=chrome"+
			"&pbk=Jincq2RErmxlKaWFtLpAl6bRdtK_vPGW9J5p_uC9dQ0"+
			"&sid=f59b36643359264f&type=tcp"+
			"#Xray%20Reality%20-%20user_42@xray.com",
		got)
}

func TestBuildURL_EscapesQueryValues(t *testing.T) {
	params := RealityParams{
		ServerAddr: "relay.example.org",
		ServerPort: 8443,
		PublicKey:  "a+b/c=",
		SNI:        "www.example.com",
		ShortID:    "ab",
	}

	got := BuildURL("s", "name", params)

	assert.Contains(t, got, "pbk=a%2Bb%2Fc%3D")
	assert.Contains(t, got, "relay.example.org:8443")
}
