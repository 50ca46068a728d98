package light

// LightBuilderOption configures a light in NewLight.
type LightBuilderOption func(*Params)

// WithParams replaces DefaultParams. A non-positive range becomes DefaultRange.
func WithParams(p Params) LightBuilderOption {
	return func(dst *Params) {
		*dst = p
		if dst.Range <= 0 {
			dst.Range = DefaultRange
		}
	}
}

func WithPosition(pos [3]float32) LightBuilderOption {
	return func(p *Params) { p.Position = pos }
}

// WithColor sets the linear RGB color.
func WithColor(color [3]float32) LightBuilderOption {
	return func(p *Params) { p.Color = color }
}

func WithIntensity(intensity float32) LightBuilderOption {
	return func(p *Params) { p.Intensity = intensity }
}

// WithRange sets the culling range. Non-positive values keep DefaultRange.
func WithRange(lightRange float32) LightBuilderOption {
	return func(p *Params) {
		if lightRange > 0 {
			p.Range = lightRange
		}
	}
}

// WithEnabled sets whether the light starts enabled.
func WithEnabled(enabled bool) LightBuilderOption {
	return func(p *Params) { p.Enabled = enabled }
}
