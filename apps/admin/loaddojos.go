package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/d2monteblanco/ki-aikido-system/core/dojo"
)

// dojoFile is the layout of the file read by loaddojos:
//
//	dojos:
//	  - name: Ki Aikido Centro
//	    contact_email: centro@example.com
//	    is_active: true
type dojoFile struct {
	Dojos []dojo.Dojo `yaml:"dojos"`
}

func (cli *commandLine) loadDojos(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading dojos file")
	}
	var file dojoFile
	if err = yaml.Unmarshal(data, &file); err != nil {
		return errors.Wrapf(err, "parsing %s", path)
	}

	var created, updated int
	ctx := context.Background()
	for i, d := range file.Dojos {
		_, isNew, err := cli.dojoSvc.Upsert(ctx, d)
		if err != nil {
			return errors.Wrapf(err, "dojo #%d", i+1)
		}
		if isNew {
			created++
		} else {
			updated++
		}
	}
	_, _ = fmt.Fprintf(cli.out, "%d dojos created, %d updated\n", created, updated)
	return nil
}
