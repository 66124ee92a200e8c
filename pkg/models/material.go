package models

import (
	"errors"
	"fmt"

	"github.com/taigrr/pbrview/pkg/math3d"
)

// ErrInvalidTexture is returned when texture dimensions disagree with the
// pixel data.
var ErrInvalidTexture = errors.New("invalid texture")

// NoTexture marks an absent texture reference.
const NoTexture = -1

// Material is a metallic-roughness PBR material.
type Material struct {
	Name      string
	BaseColor math3d.Vec4 // RGBA in 0-1 range
	Metallic  float64     // 0 = dielectric, 1 = metal
	Roughness float64     // 0 = smooth, 1 = rough

	// Indices into Model.Textures, NoTexture when absent.
	BaseColorTexture         int
	MetallicRoughnessTexture int
	NormalTexture            int
}

// NewMaterial returns a material with the default factors: opaque white,
// fully dielectric, roughness 0.5, no textures. The loader keeps these only
// for source materials without a metallic-roughness block; inside the block
// an omitted factor reads as 1.
func NewMaterial(name string) Material {
	return Material{
		Name:                     name,
		BaseColor:                math3d.White(),
		Metallic:                 0,
		Roughness:                0.5,
		BaseColorTexture:         NoTexture,
		MetallicRoughnessTexture: NoTexture,
		NormalTexture:            NoTexture,
	}
}

// TextureRefs returns the three texture references in a fixed order: base
// color, metallic-roughness, normal.
func (m *Material) TextureRefs() [3]int {
	return [3]int{m.BaseColorTexture, m.MetallicRoughnessTexture, m.NormalTexture}
}

// Texture is decoded, uncompressed pixel data. Rows run top to bottom, so
// texture coordinate (0,0) addresses the first byte.
type Texture struct {
	Name     string
	Width    int
	Height   int
	Channels int // 1, 3 or 4
	Data     []byte
}

// NewTexture creates a texture and checks its invariants.
func NewTexture(name string, width, height, channels int, data []byte) (*Texture, error) {
	t := &Texture{
		Name:     name,
		Width:    width,
		Height:   height,
		Channels: channels,
		Data:     data,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks len(Data) == Width*Height*Channels.
func (t *Texture) Validate() error {
	if t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("%w: %q has size %dx%d", ErrInvalidTexture, t.Name, t.Width, t.Height)
	}
	switch t.Channels {
	case 1, 3, 4:
	default:
		return fmt.Errorf("%w: %q has %d channels", ErrInvalidTexture, t.Name, t.Channels)
	}
	if want := t.Width * t.Height * t.Channels; len(t.Data) != want {
		return fmt.Errorf("%w: %q has %d bytes, want %d", ErrInvalidTexture, t.Name, len(t.Data), want)
	}
	return nil
}

// Pixel returns the texel at (x, y) as normalized RGBA. Single-channel
// textures replicate the value into RGB, and alpha is 1 when absent.
func (t *Texture) Pixel(x, y int) math3d.Vec4 {
	i := (y*t.Width + x) * t.Channels
	const inv = 1.0 / 255
	switch t.Channels {
	case 1:
		v := float64(t.Data[i]) * inv
		return math3d.V4(v, v, v, 1)
	case 3:
		return math3d.V4(float64(t.Data[i])*inv, float64(t.Data[i+1])*inv, float64(t.Data[i+2])*inv, 1)
	default:
		return math3d.V4(float64(t.Data[i])*inv, float64(t.Data[i+1])*inv, float64(t.Data[i+2])*inv, float64(t.Data[i+3])*inv)
	}
}
