package merge

import (
	"github.com/minios-linux/propkit/propfile"
)

// SortFile rewrites outputPath so that its messages follow the order and
// comments of inputPath. Both files must exist and the output file must be
// free of duplicate keys. Nothing is written when either check fails.
// Keys of inputPath that have no translation are returned.
func SortFile(inputPath, outputPath string) ([]string, error) {
	if err := propfile.RequireFile(inputPath); err != nil {
		return nil, err
	}
	if err := propfile.RequireFile(outputPath); err != nil {
		return nil, err
	}

	target, err := propfile.ParseFile(outputPath, propfile.Raw)
	if err != nil {
		return nil, err
	}
	ref, err := propfile.ReadDocument(inputPath)
	if err != nil {
		return nil, err
	}

	res := Reconcile(ref, target)
	if err := propfile.WriteFile(outputPath, res.Bytes()); err != nil {
		return nil, err
	}
	return res.Missing, nil
}
