package provider

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/irenevoice/irenecore/internal/intent"
)

// LoadDonationsDir reads every *.json file directly under dir, unmarshals it
// as an [intent.Donation], and returns them sorted by file name for
// deterministic load order. This is the NLU component's post-initialization
// step spec §4.7 describes ("NLU component loads handler donations during
// post-initialization"); a missing dir is not an error, since a deployment
// may run with zero donated handlers.
func LoadDonationsDir(dir string) ([]intent.Donation, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("provider: reading donations dir %q: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	donations := make([]intent.Donation, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("provider: reading donation file %q: %w", path, err)
		}
		var d intent.Donation
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("provider: parsing donation file %q: %w", path, err)
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("provider: invalid donation file %q: %w", path, err)
		}
		donations = append(donations, d)
	}
	return donations, nil
}
