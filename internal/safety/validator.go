package safety

import (
	"context"

	"resonance/internal/extrapolate"
	"resonance/internal/types"
	"resonance/internal/web"
)

// ExternalValidator fronts the web-dependent defence layers: artifact
// verification and evidence-based extrapolation. With no web client it
// runs in degraded mode, answering with explicit "not configured" results
// so the pipeline continues on local evidence at lower confidence.
//
// All checks are grounded in observable actions and their outcomes. The
// validator never groups, compares, or profiles individuals by identity
// attributes; there is deliberately no input through which such data
// could arrive.
type ExternalValidator struct {
	web      web.Client
	verifier *ArtifactVerifier
	model    *extrapolate.Model
}

// NewExternalValidator wires the web-dependent layers. A nil client puts
// the validator in degraded mode.
func NewExternalValidator(client web.Client) *ExternalValidator {
	v := &ExternalValidator{web: client}
	if client != nil {
		v.verifier = NewArtifactVerifier(client)
		v.model = extrapolate.NewModel(client)
	}
	return v
}

func (v *ExternalValidator) HasWebAccess() bool {
	return v.web != nil
}

// VerifyArtifact verifies an externally hosted artifact, or reports it
// inaccessible when no web client is configured.
func (v *ExternalValidator) VerifyArtifact(ctx context.Context, artifact types.Artifact, exp *types.Experience) types.ArtifactVerification {
	if v.verifier == nil {
		return types.ArtifactVerification{
			ArtifactID: artifact.ID,
			Status:     types.ArtifactInaccessible,
			Notes:      "Web access not configured. Artifact verification requires internet access.",
		}
	}
	return v.verifier.Verify(ctx, artifact, exp)
}

// VerifyArtifactsBatch verifies multiple artifacts for one experience.
func (v *ExternalValidator) VerifyArtifactsBatch(ctx context.Context, artifacts []types.Artifact, exp *types.Experience) []types.ArtifactVerification {
	out := make([]types.ArtifactVerification, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, v.VerifyArtifact(ctx, a, exp))
	}
	return out
}

// Extrapolate generates evidence-based trajectory hypotheses, or an empty
// evidence set with a degradation note when no web client is configured.
func (v *ExternalValidator) Extrapolate(ctx context.Context, exp *types.Experience, traj *types.Trajectory) types.TrajectoryEvidence {
	if v.model == nil {
		return types.TrajectoryEvidence{
			Activity: exp.Description,
			Note: "Web access not configured. Evidence-based extrapolation requires " +
				"internet access. The system continues with other defence layers " +
				"at lower confidence.",
		}
	}
	return v.model.Hypothesise(ctx, exp, traj)
}

// AssessExternalQuality asks an evidence-capable client for an outside
// quality signal. Returns nil when the client does not speak the evidence
// protocol or the request fails; the pipeline treats that as no evidence.
func (v *ExternalValidator) AssessExternalQuality(ctx context.Context, exp *types.Experience) *types.EvidenceQuality {
	req, ok := v.web.(web.EvidenceRequester)
	if !ok {
		return nil
	}
	resp, err := req.RequestEvidence(ctx, types.EvidenceRequest{
		Type:                  types.EvidenceQualitySignal,
		Query:                 "Quality evidence for: " + exp.Description,
		ExperienceDescription: exp.Description,
	})
	if err != nil || !resp.Success {
		return nil
	}
	return &types.EvidenceQuality{
		Score:      resp.QualityScore,
		Dimensions: resp.QualityDims,
		Confidence: resp.Confidence,
		Summary:    resp.Summary,
		Sources:    resp.SourceURLs,
	}
}

// AssessVectorProbability asks an evidence-capable client how actions like
// this one tend to resolve. Same degradation contract as quality.
func (v *ExternalValidator) AssessVectorProbability(ctx context.Context, exp *types.Experience) *types.VectorProbability {
	req, ok := v.web.(web.EvidenceRequester)
	if !ok {
		return nil
	}
	resp, err := req.RequestEvidence(ctx, types.EvidenceRequest{
		Type:                  types.EvidenceVectorProbability,
		Query:                 "Vector probability for: " + exp.Description,
		ExperienceDescription: exp.Description,
	})
	if err != nil || !resp.Success {
		return nil
	}
	return &types.VectorProbability{
		CreativeProbability:    resp.CreativeProbability,
		ConsumptiveProbability: resp.ConsumptiveProbability,
		KeyFactors:             resp.KeyFactors,
		ResolutionHorizon:      resp.ResolutionHorizon,
		Confidence:             resp.Confidence,
		Sources:                resp.SourceURLs,
	}
}
