package example

import (
	"NN-Escape/internal/example/mobilenet"
	"NN-Escape/internal/example/shufflenet"
)

var menu = [...]struct {
	name string
	call func() []byte
}{
	{"ShuffleNetV2", shufflenet.ShuffleNetV2},
	{"ShuffleNetV2Fused", shufflenet.ShuffleNetV2Fused},
	{"MobileNetV2", mobilenet.MobileNetV2},
	{"MobileNetV2Fused", mobilenet.MobileNetV2Fused},
}

func Names() []string {
	names := make([]string, len(menu))
	for i := range &menu {
		names[i] = menu[i].name
	}
	return names
}

// Generate returns the graph text of the named example, or nil.
func Generate(name string) []byte {
	for i := range &menu {
		if menu[i].name == name {
			return menu[i].call()
		}
	}
	return nil
}
