package link

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk layout of a links file.
type seedFile struct {
	Links []Link `yaml:"links"`
}

// LoadSeedFile reads and validates links from a YAML file:
//
//	links:
//	  - channel: hue:dimmer:button1
//	    kind: TRIGGER
//	    channel_type: system:rawbutton
//	    item: Hallway_Light
//	    item_type: Switch
func LoadSeedFile(path string) ([]Link, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("reading links file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed parses links from YAML bytes. Every link is validated; the
// first invalid entry fails the whole file.
func ParseSeed(data []byte) ([]Link, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing links file: %w", err)
	}

	for i := range f.Links {
		f.Links[i].normalize()
		if err := ValidateLink(&f.Links[i]); err != nil {
			return nil, fmt.Errorf("link %d (%s -> %s): %w", i, f.Links[i].ChannelUID, f.Links[i].ItemName, err)
		}
	}
	return f.Links, nil
}

// SeedRepository stores links that are not already present. A link matches
// an existing one when it has the same ID, or when it has no ID and the same
// channel is already linked to the same item. Returns the number created.
func SeedRepository(ctx context.Context, repo Repository, links []Link) (int, error) {
	created := 0
	for i := range links {
		l := links[i].DeepCopy()

		if l.ID != "" {
			_, err := repo.GetByID(ctx, l.ID)
			if err == nil {
				continue
			}
			if !errors.Is(err, ErrLinkNotFound) {
				return created, fmt.Errorf("looking up link %s: %w", l.ID, err)
			}
		} else {
			existing, err := repo.ListByChannel(ctx, l.ChannelUID)
			if err != nil {
				return created, fmt.Errorf("listing links for %s: %w", l.ChannelUID, err)
			}
			if containsItem(existing, l.ItemName) {
				continue
			}
			l.ID = GenerateID()
		}

		if err := repo.Create(ctx, l); err != nil {
			if errors.Is(err, ErrLinkExists) {
				continue
			}
			return created, fmt.Errorf("creating link %s: %w", l.ID, err)
		}
		created++
	}
	return created, nil
}

func containsItem(links []Link, item string) bool {
	for i := range links {
		if links[i].ItemName == item {
			return true
		}
	}
	return false
}
