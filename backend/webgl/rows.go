package webgl

// flipRows returns data with its rows of rowBytes in reverse order.
func flipRows(data []byte, rowBytes int) []byte {
	out := make([]byte, len(data))
	rows := len(data) / rowBytes
	for r := range rows {
		copy(out[(rows-1-r)*rowBytes:(rows-r)*rowBytes], data[r*rowBytes:(r+1)*rowBytes])
	}
	return out
}

// compactRG drops the blue and alpha channels of RGBA float32 texels read
// back with readPixels, leaving tightly packed RG texels.
func compactRG(rgba []byte) []byte {
	out := make([]byte, len(rgba)/2)
	for i := 0; i < len(rgba)/16; i++ {
		copy(out[i*8:i*8+8], rgba[i*16:i*16+8])
	}
	return out
}

// fragmentSource is linked with every kernel. Rasterization is discarded
// during feedback passes, so it never runs.
const fragmentSource = `#version 300 es
precision mediump float;
out vec4 o_color;
void main() {
    o_color = vec4(0.0);
}
`
