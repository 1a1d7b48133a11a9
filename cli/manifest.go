package main

import (
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/crosswire-dev/crosswire/runtime"
)

// outputDigest hashes transformed output with unkeyed BLAKE2b-256,
// encoded URL-safe without padding. The digest is deterministic so
// repeated builds of unchanged sources compare equal.
func outputDigest(output string) string {
	sum := blake2b.Sum256([]byte(output))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func manifestLine(path string, bytesIn int, res *runtime.Result) string {
	return fmt.Sprintf("%s\tin=%d\tout=%d\tdirective=%s\tdispatch=%s\tsanitize=%s\tdigest=%s",
		path, bytesIn, len(res.Output),
		res.Directive, res.Dispatch, res.Sanitize,
		outputDigest(res.Output))
}
