//go:build !unix

package logging

import (
	"errors"
	"os"
)

func tryLockFile(*os.File) (bool, error) {
	return false, errors.ErrUnsupported
}

func unlockFile(*os.File) error {
	return nil
}

func dirWritable(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir() && info.Mode().Perm()&0o200 != 0
}
