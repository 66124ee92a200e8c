// Package pbr implements Cook-Torrance metallic-roughness shading for a
// single point light. Every function is pure and safe for concurrent use.
package pbr

import (
	"math"

	"github.com/taigrr/pbrview/pkg/math3d"
)

const (
	// DielectricF0 is the base reflectance of non-metals at normal incidence.
	DielectricF0 = 0.04
	// AmbientFactor scales the base color into a constant ambient term.
	AmbientFactor = 0.03
	// Gamma is the display gamma applied after tonemapping.
	Gamma = 2.2
	// MinRoughness keeps the distribution term finite on mirror surfaces.
	MinRoughness = 0.045
	// Epsilon guards the specular denominator.
	Epsilon = 1e-4
	// NormalMapBlend scales the normal map perturbation.
	NormalMapBlend = 0.1
)

// Sampler returns normalized RGBA for a texture coordinate.
type Sampler interface {
	Sample(u, v float64) math3d.Vec4
}

// Fragment is one interpolated surface point in world space.
type Fragment struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
	Color    math3d.Vec4 // Vertex color, multiplied into the base color
	UV       math3d.Vec2
}

// Material holds the factors and optional maps for a fragment. Nil maps are
// treated as absent.
type Material struct {
	BaseColor math3d.Vec4
	Metallic  float64
	Roughness float64

	BaseColorMap         Sampler
	MetallicRoughnessMap Sampler // G = roughness, B = metallic
	NormalMap            Sampler
}

// Light is a point light. Color is linear and may exceed 1.
type Light struct {
	Position  math3d.Vec3
	Color     math3d.Vec3
	Intensity float64 // Multiplies Color; 0 turns the light off
}

// Radiance returns the light arriving at distance d with inverse-square
// falloff.
func (l Light) Radiance(d float64) math3d.Vec3 {
	return l.Color.Scale(l.Intensity / (d * d))
}

// DistributionGGX is the Trowbridge-Reitz normal distribution, with
// alpha = roughness squared.
func DistributionGGX(nDotH, roughness float64) float64 {
	a := roughness * roughness
	a2 := a * a
	nDotH2 := nDotH * nDotH

	denom := nDotH2*(a2-1) + 1
	return a2 / (math.Pi * denom * denom)
}

// GeometrySchlickGGX is the single-direction Schlick-GGX term for direct
// lighting, k = (roughness+1)^2 / 8.
func GeometrySchlickGGX(nDotX, roughness float64) float64 {
	r := roughness + 1
	k := r * r / 8
	return nDotX / (nDotX*(1-k) + k)
}

// GeometrySmith combines view and light occlusion.
func GeometrySmith(nDotV, nDotL, roughness float64) float64 {
	return GeometrySchlickGGX(nDotV, roughness) * GeometrySchlickGGX(nDotL, roughness)
}

// FresnelSchlick approximates reflectance at angle cosTheta = max(H·V, 0).
func FresnelSchlick(cosTheta float64, f0 math3d.Vec3) math3d.Vec3 {
	f := math.Pow(math3d.Clamp01(1-cosTheta), 5)
	return f0.Add(math3d.V3(1, 1, 1).Sub(f0).Scale(f))
}

// BaseReflectivity mixes the dielectric F0 toward the base color by metallic.
func BaseReflectivity(base math3d.Vec3, metallic float64) math3d.Vec3 {
	return math3d.V3(DielectricF0, DielectricF0, DielectricF0).Lerp(base, metallic)
}

// Weights splits energy between specular (kS = F) and diffuse
// (kD = (1-F)(1-metallic)).
func Weights(f math3d.Vec3, metallic float64) (kS, kD math3d.Vec3) {
	kD = math3d.V3(1, 1, 1).Sub(f).Scale(1 - metallic)
	return f, kD
}

// Tonemap applies Reinhard c/(c+1) per channel.
func Tonemap(c math3d.Vec3) math3d.Vec3 {
	return math3d.V3(c.X/(c.X+1), c.Y/(c.Y+1), c.Z/(c.Z+1))
}

// GammaCorrect encodes linear color for display.
func GammaCorrect(c math3d.Vec3) math3d.Vec3 {
	return c.Pow(1 / Gamma)
}

// PerturbNormal nudges n by a tangent-space normal map sample without a TBN
// basis. It is an approximation, good enough for a preview.
func PerturbNormal(n math3d.Vec3, sample math3d.Vec4) math3d.Vec3 {
	offset := math3d.V3(sample.X*2-1, sample.Y*2-1, sample.Z*2-1)
	return n.Add(offset.Scale(NormalMapBlend)).Normalize()
}

// Shade evaluates the lighting model at one fragment and returns display
// color with the base color's alpha.
func Shade(frag Fragment, mat Material, light Light, camera math3d.Vec3) math3d.Vec4 {
	base := mat.BaseColor.Mul(frag.Color)
	if mat.BaseColorMap != nil {
		base = base.Mul(mat.BaseColorMap.Sample(frag.UV.X, frag.UV.Y))
	}

	metallic := mat.Metallic
	roughness := mat.Roughness
	if mat.MetallicRoughnessMap != nil {
		mr := mat.MetallicRoughnessMap.Sample(frag.UV.X, frag.UV.Y)
		roughness *= mr.Y
		metallic *= mr.Z
	}
	roughness = math.Max(roughness, MinRoughness)

	n := frag.Normal.Normalize()
	if mat.NormalMap != nil {
		n = PerturbNormal(n, mat.NormalMap.Sample(frag.UV.X, frag.UV.Y))
	}

	albedo := base.Vec3()
	v := camera.Sub(frag.Position).Normalize()
	toLight := light.Position.Sub(frag.Position)
	l := toLight.Normalize()
	h := v.Add(l).Normalize()

	nDotV := math.Max(n.Dot(v), 0)
	nDotL := math.Max(n.Dot(l), 0)

	f0 := BaseReflectivity(albedo, metallic)
	d := DistributionGGX(math.Max(n.Dot(h), 0), roughness)
	g := GeometrySmith(nDotV, nDotL, roughness)
	f := FresnelSchlick(math.Max(h.Dot(v), 0), f0)

	specular := f.Scale(d * g / (4*nDotV*nDotL + Epsilon))
	_, kD := Weights(f, metallic)

	diffuse := kD.Mul(albedo).Scale(1 / math.Pi)
	lo := diffuse.Add(specular).Mul(light.Radiance(toLight.Len())).Scale(nDotL)

	c := albedo.Scale(AmbientFactor).Add(lo)
	c = GammaCorrect(Tonemap(c))
	return math3d.V4FromV3(c, base.W)
}
