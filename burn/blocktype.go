package burn

// BlockType bits describe the SCSI WRITE(10)/(12) block-type a track
// is sent as — distinct from Mode, which describes the payload inside
// that block (§3 "supported block-types per write-type"). Values
// match original_source/libburn/libburn.h's BURN_BLOCK_* enum so a
// Drive's SupportedBlockTypes table can be compared against them
// directly.
const (
	BlockRaw0          uint32 = 1
	BlockRaw16         uint32 = 2
	BlockRaw96P        uint32 = 4
	BlockRaw96R        uint32 = 8
	BlockMode1         uint32 = 256
	BlockMode2R        uint32 = 512
	BlockMode2Pathetic uint32 = 1024
	BlockMode2Lame     uint32 = 2048
	BlockMode2Obscure  uint32 = 4096
	BlockMode2OK       uint32 = 8192
	BlockSAO           uint32 = 16384
)
