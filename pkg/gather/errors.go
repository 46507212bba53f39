package gather

import "github.com/VioletaStepanyan/ukv/pkg/kverrors"

var (
	ErrMismatchedLengths = kverrors.New(kverrors.InvalidArgument, "gather: parallel layout sequences have mismatched lengths")
)

// wrapExtractorErr turns an Extractor failure into the ExtractorFailure
// kind (spec §7), tagging the offending document index as Row.
func wrapExtractorErr(row int, err error) error {
	return kverrors.AtRow(kverrors.ExtractorFailure, row, err.Error())
}
