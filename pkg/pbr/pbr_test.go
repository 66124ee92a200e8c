package pbr

import (
	"math"
	"testing"

	"github.com/taigrr/pbrview/pkg/math3d"
)

const eps = 1e-9

type constSampler math3d.Vec4

func (s constSampler) Sample(u, v float64) math3d.Vec4 {
	return math3d.Vec4(s)
}

func headOn() (Fragment, Light, math3d.Vec3) {
	frag := Fragment{
		Position: math3d.Zero3(),
		Normal:   math3d.V3(0, 0, 1),
		Color:    math3d.White(),
	}
	light := Light{Position: math3d.V3(0, 0, 2), Color: math3d.V3(4, 4, 4), Intensity: 1}
	return frag, light, math3d.V3(0, 0, 3)
}

func TestShadeDielectricIsGray(t *testing.T) {
	frag, light, camera := headOn()
	mat := Material{BaseColor: math3d.V4(1, 1, 1, 0.7), Metallic: 0, Roughness: 0.5}

	c := Shade(frag, mat, light, camera)

	if math.Abs(c.X-c.Y) > eps || math.Abs(c.Y-c.Z) > eps {
		t.Errorf("expected gray, got %v", c)
	}
	if c.W != 0.7 {
		t.Errorf("alpha = %v, want 0.7", c.W)
	}
	if c.X <= 0 || c.X >= 1 {
		t.Errorf("tonemapped channel %v outside (0,1)", c.X)
	}
}

func TestShadeAmbientOnly(t *testing.T) {
	frag, light, camera := headOn()
	light.Position = math3d.V3(0, 0, -2) // behind the surface
	mat := Material{BaseColor: math3d.V4(0.5, 0.25, 1, 1), Roughness: 0.5}

	got := Shade(frag, mat, light, camera)

	want := GammaCorrect(Tonemap(math3d.V3(0.5, 0.25, 1).Scale(AmbientFactor)))
	if math.Abs(got.X-want.X) > eps || math.Abs(got.Y-want.Y) > eps || math.Abs(got.Z-want.Z) > eps {
		t.Errorf("Shade = %v, want ambient %v", got, want)
	}
}

// Head-on geometry makes every cosine 1, so each term has a closed form:
// D = 1/(pi*a2) with a2 = roughness^4, G = 1 and F = F0.
func TestShadeHeadOnCookTorrance(t *testing.T) {
	frag, light, camera := headOn()
	mat := Material{BaseColor: math3d.V4(0.8, 0.6, 0.4, 1), Metallic: 0.25, Roughness: 0.5}

	if d := DistributionGGX(1, 0.5); math.Abs(d-16/math.Pi) > eps {
		t.Fatalf("D = %v, want 16/pi", d)
	}
	if g := GeometrySmith(1, 1, 0.5); math.Abs(g-1) > eps {
		t.Fatalf("G = %v, want 1", g)
	}
	if r := light.Radiance(2); r != math3d.V3(1, 1, 1) {
		t.Fatalf("radiance = %v, want 1", r)
	}

	albedo := []float64{0.8, 0.6, 0.4}
	f0 := []float64{0.23, 0.18, 0.13}
	want := []float64{0.593118358, 0.548874514, 0.488443566}

	got := Shade(frag, mat, light, camera)
	for i, ch := range []float64{got.X, got.Y, got.Z} {
		spec := f0[i] * (16 / math.Pi) / (4 + Epsilon)
		diffuse := (1 - f0[i]) * 0.75 * albedo[i] / math.Pi
		c := albedo[i]*0.03 + diffuse + spec
		c = math.Pow(c/(c+1), 1/2.2)
		if math.Abs(ch-c) > eps {
			t.Errorf("channel %d = %v, closed form %v", i, ch, c)
		}
		if math.Abs(ch-want[i]) > 1e-8 {
			t.Errorf("channel %d = %v, want %v", i, ch, want[i])
		}
	}
	if got.W != 1 {
		t.Errorf("alpha = %v, want 1", got.W)
	}
}

func TestShadeZeroIntensityIsAmbient(t *testing.T) {
	frag, light, camera := headOn()
	light.Intensity = 0
	mat := Material{BaseColor: math3d.V4(0.5, 0.25, 1, 1), Roughness: 0.5}

	got := Shade(frag, mat, light, camera)

	want := GammaCorrect(Tonemap(math3d.V3(0.5, 0.25, 1).Scale(AmbientFactor)))
	if math.Abs(got.X-want.X) > eps || math.Abs(got.Y-want.Y) > eps || math.Abs(got.Z-want.Z) > eps {
		t.Errorf("Shade = %v, want ambient %v", got, want)
	}
}

func TestShadeVertexColorAndBaseMap(t *testing.T) {
	frag, light, camera := headOn()
	frag.Color = math3d.V4(1, 0, 1, 1)
	mat := Material{
		BaseColor:    math3d.V4(1, 1, 0, 1),
		Roughness:    0.5,
		BaseColorMap: constSampler(math3d.V4(1, 1, 1, 0.5)),
	}

	c := Shade(frag, mat, light, camera)

	// Only red survives factor × vertex color
	if c.X <= 0 {
		t.Errorf("red channel should be lit, got %v", c)
	}
	if c.W != 0.5 {
		t.Errorf("alpha = %v, want 0.5 from base map", c.W)
	}
	// Green and blue still get specular from the dielectric F0
	if math.Abs(c.Y-c.Z) > eps {
		t.Errorf("green %v and blue %v should match", c.Y, c.Z)
	}
}

func TestShadeMetallicRoughnessChannels(t *testing.T) {
	frag, light, camera := headOn()
	base := math3d.V4(0.8, 0.3, 0.1, 1)

	// Green scales roughness and blue scales metallic
	mapped := Material{
		BaseColor:            base,
		Metallic:             1,
		Roughness:            1,
		MetallicRoughnessMap: constSampler(math3d.V4(0, 0.2, 0.9, 1)),
	}
	direct := Material{BaseColor: base, Metallic: 0.9, Roughness: 0.2}

	got := Shade(frag, mapped, light, camera)
	want := Shade(frag, direct, light, camera)
	if math.Abs(got.X-want.X) > eps || math.Abs(got.Y-want.Y) > eps || math.Abs(got.Z-want.Z) > eps {
		t.Errorf("mapped = %v, direct = %v", got, want)
	}

	swapped := direct
	swapped.Metallic, swapped.Roughness = 0.2, 0.9
	if other := Shade(frag, swapped, light, camera); other == got {
		t.Error("swapping channels should change the result")
	}
}

func TestShadeZeroRoughnessIsFinite(t *testing.T) {
	frag, light, camera := headOn()
	mat := Material{BaseColor: math3d.White(), Metallic: 1, Roughness: 0}

	c := Shade(frag, mat, light, camera)
	for _, v := range []float64{c.X, c.Y, c.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite output %v", c)
		}
	}
}

func TestNormalMapFlatSampleKeepsNormal(t *testing.T) {
	n := math3d.V3(0, 1, 0)
	got := PerturbNormal(n, math3d.V4(0.5, 0.5, 1, 1))

	// (0.5,0.5,1) decodes to +Z, which tilts the normal slightly toward Z
	if got.Y < 0.99 || got.Z <= 0 {
		t.Errorf("PerturbNormal = %v", got)
	}
	if math.Abs(got.Len()-1) > eps {
		t.Errorf("PerturbNormal length = %v", got.Len())
	}
}

func TestDistributionGGX(t *testing.T) {
	// With roughness 1 the distribution is uniform
	for _, nDotH := range []float64{0, 0.3, 1} {
		if got := DistributionGGX(nDotH, 1); math.Abs(got-1/math.Pi) > eps {
			t.Errorf("DistributionGGX(%v, 1) = %v, want 1/pi", nDotH, got)
		}
	}
	// Smoother surfaces peak higher at the half vector
	if DistributionGGX(1, 0.2) <= DistributionGGX(1, 0.8) {
		t.Error("lower roughness should give a sharper peak")
	}
}

func TestGeometry(t *testing.T) {
	tests := []struct {
		nDotV, nDotL, roughness float64
		want                    float64
	}{
		{1, 1, 0.5, 1},
		{0, 1, 0.5, 0},
		{1, 0, 0.5, 0},
	}
	for _, tt := range tests {
		if got := GeometrySmith(tt.nDotV, tt.nDotL, tt.roughness); math.Abs(got-tt.want) > eps {
			t.Errorf("GeometrySmith(%v, %v, %v) = %v, want %v", tt.nDotV, tt.nDotL, tt.roughness, got, tt.want)
		}
	}
}

func TestFresnelSchlick(t *testing.T) {
	f0 := math3d.V3(0.04, 0.04, 0.04)

	if got := FresnelSchlick(1, f0); math.Abs(got.X-0.04) > eps {
		t.Errorf("at normal incidence F = %v, want F0", got)
	}
	if got := FresnelSchlick(0, f0); math.Abs(got.X-1) > eps {
		t.Errorf("at grazing angle F = %v, want 1", got)
	}
}

func TestBaseReflectivity(t *testing.T) {
	base := math3d.V3(0.9, 0.5, 0.1)

	if got := BaseReflectivity(base, 0); got != math3d.V3(DielectricF0, DielectricF0, DielectricF0) {
		t.Errorf("dielectric F0 = %v", got)
	}
	if got := BaseReflectivity(base, 1); got.Distance(base) > eps {
		t.Errorf("metal F0 = %v, want base color", got)
	}
}

func TestEnergyConservation(t *testing.T) {
	base := math3d.V3(1, 0.5, 0)
	for _, metallic := range []float64{0, 0.25, 0.5, 0.75, 1} {
		for _, cosTheta := range []float64{0, 0.1, 0.5, 0.9, 1} {
			f := FresnelSchlick(cosTheta, BaseReflectivity(base, metallic))
			kS, kD := Weights(f, metallic)

			for _, w := range []float64{kS.X, kS.Y, kS.Z, kD.X, kD.Y, kD.Z} {
				if w < 0 || w > 1 {
					t.Errorf("metallic=%v cos=%v: weight %v outside [0,1]", metallic, cosTheta, w)
				}
			}
			if metallic == 1 && !kD.IsZero() {
				t.Errorf("metal should have no diffuse, got kD=%v", kD)
			}
		}
	}
}

func TestTonemapAndGamma(t *testing.T) {
	c := Tonemap(math3d.V3(0, 1, 3))
	if c != math3d.V3(0, 0.5, 0.75) {
		t.Errorf("Tonemap = %v", c)
	}
	g := GammaCorrect(math3d.V3(0, 1, 0.5))
	if g.X != 0 || g.Y != 1 || math.Abs(g.Z-math.Pow(0.5, 1/2.2)) > eps {
		t.Errorf("GammaCorrect = %v", g)
	}
}

func TestLightRadiance(t *testing.T) {
	l := Light{Color: math3d.V3(8, 4, 2), Intensity: 1}
	if got := l.Radiance(2); got != math3d.V3(2, 1, 0.5) {
		t.Errorf("Radiance(2) = %v", got)
	}
	l.Intensity = 2
	if got := l.Radiance(2); got != math3d.V3(4, 2, 1) {
		t.Errorf("Radiance(2) with intensity 2 = %v", got)
	}
	l.Intensity = 0
	if got := l.Radiance(2); got != math3d.Zero3() {
		t.Errorf("Radiance(2) with intensity 0 = %v", got)
	}
}

func BenchmarkShade(b *testing.B) {
	frag, light, camera := headOn()
	mat := Material{BaseColor: math3d.White(), Metallic: 0.5, Roughness: 0.5}

	for b.Loop() {
		_ = Shade(frag, mat, light, camera)
	}
}
