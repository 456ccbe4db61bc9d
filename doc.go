// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

/*
Package zipinpng builds files that are a valid PNG image and a valid ZIP
archive at the same time.

Every archive entry (local header, compressed data, and data descriptor)
is wrapped verbatim into a PNG tEXt chunk with the keyword "Comment".
The central directory and end of central directory record go into one
more tEXt chunk placed right before IEND. Local header offsets and the
central directory offset are rewritten to their new absolute positions,
and the EOCD comment length is set to 12 so the trailing IEND marker is
read as the archive comment.

PNG decoders walk chunks from the signature and skip the tEXt chunks.
ZIP readers locate the EOCD from the end of file and follow absolute
offsets, so the chunk framing between entries is never read.

Limits (summary):
  - no ZIP64: every offset in the composite must fit 32 bits;
  - no multi-disk archives;
  - one entry must fit a single PNG chunk (2^31-1 bytes);
  - the donor archive comment is dropped.

# Composing

Compose an image with an existing archive:

	img, _ := os.ReadFile("icon.png")
	archive, _ := os.ReadFile("payload.zip")
	var out bytes.Buffer
	res, err := zipinpng.Compose(&out, img, archive, zipinpng.ComposeOptions{})
	if err != nil {
	    return err
	}
	_ = res.Entries

Or write to a path atomically:

	res, err := zipinpng.ComposeFile("out.png", "icon.png", "payload.zip", zipinpng.ComposeOptions{})

Build the archive from in-memory files first
(store rules use github.com/woozymasta/pathrules):

	res, err := zipinpng.ComposeFiles(out, img, []zipinpng.File{
	    {Name: "lib/arm64-v8a/libpayload.so", Data: so},
	}, zipinpng.BuildOptions{
	    Store: zipinpng.IncludeRules("*.png", "*.jpg"),
	}, zipinpng.ComposeOptions{})

# Reading

Composite files are ordinary ZIP archives for archive/zip and other readers:

	entries, err := zipinpng.Extract(data)
	if err != nil {
	    return err
	}
	for _, e := range entries {
	    _ = e.Data
	}

Extract selected entries to a directory:

	err := zipinpng.ExtractDir(ctx, data, "out/", zipinpng.ExtractOptions{
	    Include:    zipinpng.IncludeRules("lib/**"),
	    MaxWorkers: 4,
	})

Check both views of a file:

	report := zipinpng.Inspect(data)
	_ = report.Polyglot
*/
package zipinpng
