package detection

import (
	"math"

	"surveyguard/internal/models"
)

const (
	// Fewer pointer movements than this and the method is not applicable.
	minMouseSamples = 20

	// Path efficiency (direct distance / traveled distance) above this is
	// machine-straight; humans curve and correct.
	machinePathEfficiency = 0.97

	// Velocity below this coefficient of variation is servo-uniform.
	uniformVelocityCV = 0.15

	// Movement distances under a pixel are capture noise, velocities above
	// this many px/s are render artifacts; both are filtered like the rest
	// of the pointer pipeline.
	minSegmentPx  = 1.0
	maxVelocityPx = 10000.0

	// A click with no recorded movement in the preceding window means the
	// pointer teleported there.
	teleportWindowMS = 1500.0

	// Misses are measured against a fixed radius around the target center,
	// roughly the half-extent of a survey control. Events carry no element
	// geometry, so the radius cannot depend on where the target sits.
	clickRadiusPx = 24.0
)

// scoreMouse rates how machine-like the session's pointer behavior is:
// impossibly straight paths, uniform velocity, teleporting clicks, and
// dead-center click precision.
func scoreMouse(f *SessionFeatures) MethodResult {
	if len(f.MouseMoves) < minMouseSamples {
		return notApplicable(len(f.MouseMoves))
	}

	var flags []models.Flag
	var components []float64

	if eff, ok := pathEfficiency(f.MouseMoves); ok {
		straightness := clamp01((eff - 0.7) / 0.3)
		components = append(components, straightness)

		if eff > machinePathEfficiency {
			flags = append(flags, models.Flag{
				Name:       models.PatternMachinePath,
				Confidence: straightness,
				Observed:   eff,
				Threshold:  machinePathEfficiency,
				Detail:     "pointer travels in near-perfect straight lines",
			})
		}
	}

	if velocities := segmentVelocities(f.MouseMoves); len(velocities) >= 3 {
		cv := coefficientOfVariation(filterIQR(velocities))
		uniformity := clamp01((0.5 - cv) / 0.5)
		components = append(components, uniformity)

		if cv < uniformVelocityCV {
			flags = append(flags, models.Flag{
				Name:       models.PatternUniformVelocity,
				Confidence: uniformity,
				Observed:   cv,
				Threshold:  uniformVelocityCV,
				Detail:     "pointer velocity is unnaturally constant",
			})
		}
	}

	if len(f.Clicks) > 0 {
		rate := teleportingClickRate(f.Clicks, f.MouseMoves)
		components = append(components, rate)

		if rate > 0.5 {
			flags = append(flags, models.Flag{
				Name:       models.PatternTeleportingPointer,
				Confidence: rate,
				Observed:   rate,
				Threshold:  0.5,
				Detail:     "clicks land without preceding pointer movement",
			})
		}

		if precision, ok := clickPrecision(f.Clicks); ok {
			// Perfect precision on every click is a script driving
			// element-center coordinates.
			perfection := clamp01((precision - 0.9) / 0.1)
			components = append(components, perfection)

			if precision > 0.99 {
				flags = append(flags, models.Flag{
					Name:       models.PatternPerfectClicks,
					Confidence: perfection,
					Observed:   precision,
					Threshold:  0.99,
					Detail:     "every click lands dead-center on its target",
				})
			}
		}
	}

	if len(components) == 0 {
		return notApplicable(len(f.MouseMoves))
	}

	return MethodResult{
		Score:      clamp01(mean(components)),
		Applicable: true,
		SampleSize: len(f.MouseMoves),
		Flags:      flags,
	}
}

// pathEfficiency is direct distance over traveled distance across the whole
// movement trace, tiny segments filtered as noise. Needs a meaningful
// direct distance to say anything.
func pathEfficiency(moves []models.Event) (float64, bool) {
	first, last := moves[0], moves[len(moves)-1]
	directDist := math.Hypot(last.X-first.X, last.Y-first.Y)
	if directDist < 10.0 {
		return 0, false
	}

	traveled := 0.0
	lastX, lastY := first.X, first.Y
	for i := 1; i < len(moves); i++ {
		segment := math.Hypot(moves[i].X-lastX, moves[i].Y-lastY)
		if segment > minSegmentPx {
			traveled += segment
			lastX, lastY = moves[i].X, moves[i].Y
		}
	}
	if traveled <= 0 {
		return 0, false
	}

	eff := directDist / traveled
	if eff > 1.0 {
		eff = 1.0
	}
	return eff, true
}

func segmentVelocities(moves []models.Event) []float64 {
	velocities := make([]float64, 0, len(moves)-1)
	for i := 1; i < len(moves); i++ {
		dt := (moves[i].Timestamp - moves[i-1].Timestamp) / 1000
		if dt <= 0 {
			continue
		}
		dist := math.Hypot(moves[i].X-moves[i-1].X, moves[i].Y-moves[i-1].Y)
		if dist < minSegmentPx {
			continue
		}
		v := dist / dt
		if v < maxVelocityPx {
			velocities = append(velocities, v)
		}
	}
	return velocities
}

// teleportingClickRate is the fraction of clicks with no pointer movement
// recorded in the window before them.
func teleportingClickRate(clicks, moves []models.Event) float64 {
	if len(clicks) == 0 {
		return 0
	}
	teleports := 0
	for _, c := range clicks {
		seen := false
		for _, m := range moves {
			if m.Timestamp < c.Timestamp && c.Timestamp-m.Timestamp <= teleportWindowMS {
				seen = true
				break
			}
		}
		if !seen {
			teleports++
		}
	}
	return float64(teleports) / float64(len(clicks))
}

// clickPrecision is 1 minus the average miss distance between click point
// and target center, normalized by clickRadiusPx and capped at 1, over
// clicks that carry target geometry. The same miss scores the same wherever
// the target sits on screen.
func clickPrecision(clicks []models.Event) (float64, bool) {
	sum := 0.0
	n := 0
	for _, c := range clicks {
		if c.TargetX == 0 && c.TargetY == 0 {
			continue
		}
		norm := math.Hypot(c.X-c.TargetX, c.Y-c.TargetY) / clickRadiusPx
		if norm > 1 {
			norm = 1
		}
		sum += norm
		n++
	}
	if n == 0 {
		return 0, false
	}
	return 1 - sum/float64(n), true
}
