// Package mpak packs file trees into a single container file and
// reconstructs them from it.
//
// A container is a header followed by a payload region. The header
// records a format version, an arbitrary tag map, and an ordered file
// entry table; the payload region is the concatenation of each entry's
// raw bytes in table order. Entries carry no explicit offsets: entry
// i's payload begins at the header size plus the sum of all earlier
// entry sizes, so the container is append-then-freeze. Changing an
// archive means building a new one.
//
// # Packing
//
// Pack expands root paths into a flat file list, writes the header, and
// streams each file into the payload region:
//
//	err := mpak.Pack(ctx, w, []string{"./src", "notes.txt"},
//	    mpak.PackWithTags(map[string]string{"project": "demo"}),
//	)
//
// PackFile is the owning convenience that writes atomically to a path
// and syncs on completion.
//
// # Reading
//
// Open parses the header eagerly and returns a session over any
// io.ReaderAt; OpenFile opens a container on disk:
//
//	a, err := mpak.OpenFile("demo.mpk")
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//	err = a.Unpack(ctx, "./out")
//
// Transfers run in bounded chunks, so memory use is independent of
// file and archive size. Each chunk passes through a Transform hook;
// only the identity transform ships, reserving the hook for future
// codecs.
package mpak
