// Package store is the file I/O boundary of the hydration engine.
//
// The hydrator only needs to read documents, enumerate directories and write
// results, so it depends on the small Reader and Writer interfaces defined
// here. FileStore implements them on the local file system with size and
// encoding validation and atomic writes. MemoryStore keeps everything in a
// map and is used by tests.
//
// The document format is chosen from the file name: ".json" files and
// dot-rc files such as ".percyrc" are JSON, everything else is YAML.
package store
