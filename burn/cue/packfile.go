package cue

import (
	"fmt"

	"libburn/burn/cdtext"
)

// IngestPackFile decodes one of the three CD-TEXT pack-file encodings
// (§6 "CD-TEXT pack file input"): raw 18·N bytes, the `[N·18+2 BE]`
// 4-byte header variant written by `cdrecord -vv -toc` (only the first
// two header bytes carry the size check; the other two are unused), or
// the Sony `[packs][0x00]` trailing-byte variant. It rejects anything
// else with a specific error, and a pack count over §4.4's 2048-pack
// ceiling (8 blocks × 256 packs).
func IngestPackFile(data []byte) ([][]byte, error) {
	size := len(data)
	residue := size % cdtext.PackSize
	if residue != 0 && residue != 4 && residue != 1 {
		return nil, fmt.Errorf("libburn: not a usable CD-TEXT pack file (size %d bytes)", size)
	}
	if size < cdtext.PackSize {
		return nil, fmt.Errorf("libburn: CD-TEXT pack file too short (%d bytes)", size)
	}

	body := data
	switch residue {
	case 4:
		head := data[:4]
		if int(head[0])*256+int(head[1]) != size-2 {
			return nil, fmt.Errorf("libburn: CD-TEXT pack file header size mismatch")
		}
		body = data[4:]
	case 1:
		if data[size-1] != 0 {
			return nil, fmt.Errorf("libburn: CD-TEXT pack file missing Sony trailing zero byte")
		}
		body = data[:size-1]
	}

	numPacks := len(body) / cdtext.PackSize
	if numPacks > maxPacksTotalExported {
		return nil, fmt.Errorf("libburn: CD-TEXT pack file too large (max %d packs)", maxPacksTotalExported)
	}

	packs := make([][]byte, numPacks)
	for i := 0; i < numPacks; i++ {
		pack := make([]byte, cdtext.PackSize)
		copy(pack, body[i*cdtext.PackSize:(i+1)*cdtext.PackSize])
		packs[i] = pack
	}
	return packs, nil
}

// maxPacksTotalExported mirrors cdtext's unexported maxPacksTotal
// (8 blocks x 256 packs); kept here since that constant isn't exported
// across the package boundary.
const maxPacksTotalExported = 2048
