package config

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var (
	encodingLock   sync.RWMutex
	currentCharMap *charmap.Charmap
)

// SetEncoding selects the legacy charmap documents are transcoded from.
// An empty name means documents are already UTF-8.
func SetEncoding(name string) error {
	if name == "" {
		encodingLock.Lock()
		currentCharMap = nil
		encodingLock.Unlock()
		return nil
	}
	cm, err := LookupEncoding(name)
	if err != nil {
		return err
	}
	encodingLock.Lock()
	currentCharMap = cm
	encodingLock.Unlock()
	return nil
}

func LookupEncoding(name string) (*charmap.Charmap, error) {
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			if cm.String() == name {
				return cm, nil
			}
		}
	}
	return nil, errors.Errorf("Failed to find encoding %q", name)
}

func ListEncodings() []string {
	list := make([]string, 0)
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			list = append(list, cm.String())
		}
	}
	return list
}

// GetEncoding returns the selected charmap or nil for UTF-8.
func GetEncoding() *charmap.Charmap {
	encodingLock.RLock()
	defer encodingLock.RUnlock()
	return currentCharMap
}

// DecodeSource transcodes data from the selected charmap into UTF-8.
func DecodeSource(data []byte) ([]byte, error) {
	cm := GetEncoding()
	if cm == nil {
		return data, nil
	}
	out, _, err := transform.Bytes(cm.NewDecoder(), data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode from %v", cm)
	}
	return out, nil
}
