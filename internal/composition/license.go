package composition

import (
	"github.com/go-enry/go-license-detector/v4/licensedb"
	"github.com/go-enry/go-license-detector/v4/licensedb/filer"
)

const licenseConfidence = 0.85

// DetectLicense scans dir for license files and returns the SPDX
// identifier of the most confident match, or "" if none is confident.
func DetectLicense(dir string) string {
	f, err := filer.FromDirectory(dir)
	if err != nil {
		return ""
	}

	results, err := licensedb.Detect(f)
	if err != nil {
		return ""
	}

	var bestID string
	var bestConf float32
	for id, match := range results {
		if match.Confidence > bestConf && match.Confidence >= licenseConfidence {
			bestConf = match.Confidence
			bestID = id
		}
	}
	return bestID
}
