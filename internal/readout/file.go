// Public domain.

package readout

import (
	"encoding/gob"
	"fmt"
	"os"
	"time"
)

// fileVersion is written ahead of the integration so old files can be
// recognized.
const fileVersion = 1

// ReadFile reads an integration written by WriteFile.
//
// The file holds a version number, the time the file was written, and
// the integration.  The integration is validated before it is returned.
func ReadFile(fn string) (d *Integration, written time.Time, err error) {
	var f *os.File
	f, err = os.Open(fn)
	if err != nil {
		return
	}
	defer f.Close()
	dec := gob.NewDecoder(f)
	var v int
	if err = dec.Decode(&v); err != nil {
		return
	}
	if v != fileVersion {
		err = fmt.Errorf("%s: file version %d, want %d", fn, v, fileVersion)
		return
	}
	if err = dec.Decode(&written); err != nil {
		return
	}
	d = new(Integration)
	if err = dec.Decode(d); err != nil {
		return nil, written, err
	}
	if err = d.Validate(); err != nil {
		return nil, written, fmt.Errorf("%s: %w", fn, err)
	}
	return
}

// WriteFile writes an integration to file fn.
func WriteFile(fn string, d *Integration) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	enc := gob.NewEncoder(f)
	if err = enc.Encode(fileVersion); err == nil {
		if err = enc.Encode(time.Now().UTC()); err == nil {
			err = enc.Encode(d)
		}
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
