package storage

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedURI = errors.New("malformed storage URI")

// dataset partitions of a Trellis demonstration workflow.
//
// These names are fixed: the training service reads the "train" and
// "validation" channels, and batch transform reads "test".
const (
	PartitionTrain      = "train"
	PartitionTest       = "test"
	PartitionValidation = "validation"
)

// Partitions lists all dataset partitions, in staging order.
func Partitions() []string {
	return []string{PartitionTrain, PartitionTest, PartitionValidation}
}

// Location points a prefix in the object storage behind the Trellis API.
type Location struct {
	Bucket string `json:"bucket" yaml:"bucket"`
	Prefix string `json:"prefix" yaml:"prefix"`
}

func (l Location) Equal(o Location) bool {
	return l.Bucket == o.Bucket && l.normalPrefix() == o.normalPrefix()
}

func (l Location) normalPrefix() string {
	return strings.Trim(l.Prefix, "/")
}

// URI renders the location as "s3://<bucket>/<prefix>".
func (l Location) URI() string {
	if p := l.normalPrefix(); p != "" {
		return fmt.Sprintf("s3://%s/%s", l.Bucket, p)
	}
	return fmt.Sprintf("s3://%s", l.Bucket)
}

// Sub returns a Location pointing the named element under this prefix.
func (l Location) Sub(elem string) Location {
	prefix := l.normalPrefix()
	elem = strings.Trim(elem, "/")
	if prefix == "" {
		prefix = elem
	} else {
		prefix = prefix + "/" + elem
	}
	return Location{Bucket: l.Bucket, Prefix: prefix}
}

// PartitionURI renders the URI of a dataset partition under this location,
// like "s3://bucket/prefix/train".
func (l Location) PartitionURI(partition string) string {
	return l.Sub(partition).URI()
}

// ParseURI reads "s3://<bucket>/<prefix>" into a Location.
func ParseURI(uri string) (Location, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok || rest == "" {
		return Location{}, fmt.Errorf("%w: %s", ErrMalformedURI, uri)
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("%w: %s", ErrMalformedURI, uri)
	}
	return Location{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
}

// PartitionObject points the dataset object of a partition under this
// location: "<prefix>/<partition>/<partition>.csv".
func (l Location) PartitionObject(partition string) Object {
	sub := l.Sub(partition)
	return Object{
		Bucket: sub.Bucket,
		Key:    sub.normalPrefix() + "/" + partition + ".csv",
	}
}

// Object points a single object in the storage.
type Object struct {
	Bucket string `json:"bucket" yaml:"bucket"`
	Key    string `json:"key" yaml:"key"`
}

func (o Object) Equal(other Object) bool {
	return o.Bucket == other.Bucket && o.Key == other.Key
}

func (o Object) URI() string {
	return fmt.Sprintf("s3://%s/%s", o.Bucket, strings.TrimPrefix(o.Key, "/"))
}
