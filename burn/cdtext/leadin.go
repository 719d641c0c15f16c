package cdtext

// packToSubchannel converts one 18-byte 8-bit CD-TEXT pack into its
// 24-byte 6-bit subchannel representation: each run of 3 source bytes
// (24 bits) becomes 4 six-bit values, one per output byte (§4.4
// "Lead-in writing").
func packToSubchannel(pack []byte) []byte {
	out := make([]byte, 24)
	for i, o := 0, 0; i < 18; i, o = i+3, o+4 {
		out[o+0] = (pack[i+0] >> 2) & 0x3f
		out[o+1] = (pack[i+0]<<4)&0x30 | (pack[i+1]>>4)&0x0f
		out[o+2] = (pack[i+1]<<2)&0x3c | (pack[i+2]>>6)&0x03
		out[o+3] = pack[i+2] & 0x3f
	}
	return out
}

// BuildLeadinSectors lays the pack array's 6-bit subchannel
// representation out over the CD Lead-in, from startLBA (the ATIP
// Lead-in start, e.g. -4500) up to -151 inclusive, cycling through the
// packs round-robin at 4 packs (96 bytes) per sector (§4.4). It
// returns one 96-byte slice per Lead-in sector; the caller is
// responsible for handing these to the drive collaborator in
// SCSI-buffer-sized batches.
func BuildLeadinSectors(packs [][]byte, startLBA int) [][]byte {
	if len(packs) == 0 || startLBA >= -150 {
		return nil
	}

	subdata := make([][]byte, len(packs))
	for i, p := range packs {
		subdata[i] = packToSubchannel(p)
	}

	numSectors := -150 - startLBA
	sectors := make([][]byte, 0, numSectors)
	cursor := 0
	for lba := startLBA; lba < -150; lba++ {
		sector := make([]byte, 0, 96)
		for j := 0; j < 4; j++ {
			sector = append(sector, subdata[cursor]...)
			cursor = (cursor + 1) % len(packs)
		}
		sectors = append(sectors, sector)
	}
	return sectors
}
