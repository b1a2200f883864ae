package video

// FrameBuffer stores one rendered frame as RGB565 pixels, a format a host
// can blit straight to most display backends without a further conversion
// pass.
const (
	FramebufferWidth  = 160
	FramebufferHeight = 144
	FramebufferSize   = FramebufferWidth * FramebufferHeight
)

type FrameBuffer struct {
	width  uint
	height uint
	buffer []uint16
}

func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{
		width:  FramebufferWidth,
		height: FramebufferHeight,
		buffer: make([]uint16, FramebufferSize),
	}
}

func (fb *FrameBuffer) GetPixel(x, y uint) uint16 {
	return fb.buffer[y*fb.width+x]
}

func (fb *FrameBuffer) SetPixel(x, y uint, color uint16) {
	fb.buffer[y*fb.width+x] = color
}

func (fb *FrameBuffer) ToSlice() []uint16 {
	return fb.buffer
}

func (fb *FrameBuffer) Clear() {
	for i := range fb.buffer {
		fb.buffer[i] = 0
	}
}
