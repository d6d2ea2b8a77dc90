package controllers

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/amaumene/mediastash/internal/formats"
	"github.com/amaumene/mediastash/internal/models"
)

// ResolveStrategy decides how a reference gets fetched. It is a pure
// function of the reference string and a filesystem existence check;
// anything ambiguous falls through to extraction, which fails fast on
// its own when a source is unsupported.
func ResolveStrategy(reference string) models.Strategy {
	if info, err := os.Stat(reference); err == nil && !info.IsDir() {
		ext := strings.ToLower(filepath.Ext(reference))
		// Local HTML files hold embedded media for the extraction tool
		if ext == ".html" || ext == ".htm" {
			return models.StrategyExtraction
		}
		return models.StrategyLocalFile
	}

	parsed, err := url.Parse(reference)
	if err != nil {
		return models.StrategyExtraction
	}

	if formats.HasMediaExtension(strings.ToLower(parsed.Path)) {
		return models.StrategyDirect
	}

	return models.StrategyExtraction
}
