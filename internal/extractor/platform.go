package extractor

import (
	"strings"

	"sjsage522/salewatch/helpers"
)

// platforms is checked in order against the hostname.
var platforms = []struct {
	fragment string
	name     string
}{
	{"acon3d", "ACON3D"},
	{"gumroad", "Gumroad"},
	{"artstation", "ArtStation"},
	{"cgtrader", "CGTrader"},
	{"turbosquid", "TurboSquid"},
	{"sketchfab", "Sketchfab"},
	{"assetstore.unity", "Unity Asset Store"},
	{"fab.com", "Fab"},
	{"unrealengine", "Unreal Marketplace"},
	{"booth.pm", "BOOTH"},
	{"itch.io", "itch.io"},
	{"etsy", "Etsy"},
	{"kitbash3d", "KitBash3D"},
	{"blendermarket", "Blender Market"},
	{"superhivemarket", "Blender Market"},
	{"creativemarket", "Creative Market"},
	{"amazon", "Amazon"},
}

// DetectPlatform maps a page URL to a coarse platform name by hostname
// substring. Unknown hosts yield "".
func DetectPlatform(pageURL string) string {
	host := helpers.Hostname(pageURL)
	if host == "" {
		return ""
	}
	for _, p := range platforms {
		if strings.Contains(host, p.fragment) {
			return p.name
		}
	}
	return ""
}
