package nvm

import "github.com/pkg/errors"

var (
	ErrorRegionUnknown = errors.New("Region could not be decoded")
	ErrorImageSize     = errors.New("NVM image too small")
	ErrorPatchSize     = errors.New("Not an NVM image or patch window")
)
