package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/andreyvit/bytestore"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.etcd.io/bbolt"
)

const (
	layoutRaw   = "raw"
	layoutSplit = "split"
	layoutMulti = "multi"
)

// SourceOptions describe how to find and interpret a region.
type SourceOptions struct {
	Header int
	Layout string
	Bolt   string
}

func (o *SourceOptions) addFlags(f *pflag.FlagSet) {
	f.IntVar(&o.Header, "header", 0, "skip a custom header of `n` bytes before the layout")
	f.StringVar(&o.Layout, "layout", layoutRaw, "region layout: raw, split or multi")
	f.StringVar(&o.Bolt, "bolt", "", "treat files as Bolt databases and read the region stored under `bucket/key`")
}

func (o *SourceOptions) validate() error {
	switch o.Layout {
	case layoutRaw, layoutSplit, layoutMulti:
	default:
		return errors.Errorf("unknown layout %q", o.Layout)
	}
	if o.Header < 0 {
		return errors.Errorf("negative header size %d", o.Header)
	}
	if o.Bolt != "" {
		if _, _, ok := strings.Cut(o.Bolt, "/"); !ok {
			return errors.Errorf("--bolt wants bucket/key, got %q", o.Bolt)
		}
	}
	return nil
}

// source is an opened region, split according to its layout.
type source struct {
	path   string
	root   bytestore.Backend
	body   bytestore.Backend
	header *bytestore.HeaderRegion
	split  *bytestore.SplitRegion
	multi  *bytestore.MultiRegion
	close  func() error
}

type namedPart struct {
	name string
	b    bytestore.Backend
}

func openSource(path string, o SourceOptions) (*source, error) {
	s := &source{path: path}
	if o.Bolt != "" {
		bucket, key, _ := strings.Cut(o.Bolt, "/")
		bdb, err := bbolt.Open(path, 0666, &bbolt.Options{ReadOnly: true, Timeout: 5 * time.Second})
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", path)
		}
		bb, err := bytestore.OpenBolt(bdb, bucket, key)
		if err != nil {
			bdb.Close()
			return nil, errors.Wrapf(err, "load %s", o.Bolt)
		}
		s.root, s.close = bb, bdb.Close
	} else {
		m, err := bytestore.OpenMapped(path, bytestore.MappedOptions{ReadOnly: true, Logger: slog.Default()})
		if err != nil {
			return nil, errors.Wrap(err, "OpenMapped")
		}
		s.root, s.close = m, m.Close
	}
	if err := s.attach(o); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *source) attach(o SourceOptions) error {
	body := s.root
	if o.Header > 0 {
		if body.Len() < o.Header {
			return errors.Errorf("%s: region of %d bytes is shorter than the %d-byte header", s.path, body.Len(), o.Header)
		}
		hr, err := bytestore.OpenHeaderRegion(body, o.Header)
		if err != nil {
			return errors.Wrap(err, "OpenHeaderRegion")
		}
		s.header, body = hr, hr
	}
	var err error
	switch o.Layout {
	case layoutSplit:
		s.split, err = bytestore.OpenSplitRegion(body)
		err = errors.Wrap(err, "OpenSplitRegion")
	case layoutMulti:
		s.multi, err = bytestore.OpenMultiRegion(body, bytestore.MultiOptions{})
		err = errors.Wrap(err, "OpenMultiRegion")
	}
	s.body = body
	return err
}

func (s *source) parts() ([]namedPart, error) {
	switch {
	case s.split != nil:
		return []namedPart{{"a", s.split.First()}, {"b", s.split.Second()}}, nil
	case s.multi != nil:
		parts := make([]namedPart, 0, s.multi.Count())
		for id := range s.multi.Count() {
			p, err := s.multi.Part(id)
			if err != nil {
				return nil, err
			}
			parts = append(parts, namedPart{fmt.Sprint(id), p})
		}
		return parts, nil
	default:
		return []namedPart{{"raw", s.body}}, nil
	}
}

func (s *source) describe(f bytestore.DumpFlags) string {
	var out strings.Builder
	if s.header != nil {
		out.WriteString(s.header.Dump(f &^ bytestore.DumpStats))
	}
	switch {
	case s.split != nil:
		out.WriteString(s.split.Dump(f))
	case s.multi != nil:
		out.WriteString(s.multi.Dump(f))
	case s.header == nil:
		out.WriteString(bytestore.DumpBackend("raw", s.root, f))
	}
	return out.String()
}
