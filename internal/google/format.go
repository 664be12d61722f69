package google

import (
	"strings"

	"github.com/antoto2021/nexus/internal/proto"
	"github.com/antoto2021/nexus/internal/provider"
)

const roleModel = "model"

func fromProtoMessages(input []proto.Message) []Content {
	result := make([]Content, 0, len(input))
	for _, in := range input {
		if in.Content == "" {
			continue
		}
		switch in.Role {
		case proto.RoleSystem, proto.RoleUser:
			result = append(result, Content{
				Role:  proto.RoleUser,
				Parts: []Part{{Text: in.Content}},
			})
		case proto.RoleAssistant:
			result = append(result, Content{
				Role:  roleModel,
				Parts: []Part{{Text: in.Content}},
			})
		}
	}
	return result
}

func toProtoResponse(model string, resp CompletionMessageResponse) (proto.Response, error) {
	if len(resp.Candidates) == 0 {
		return proto.Response{}, provider.ErrNoContent
	}
	candidate := resp.Candidates[0]
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return proto.Response{}, provider.ErrNoContent
	}
	out := proto.Response{
		Model:        model,
		Content:      sb.String(),
		FinishReason: candidate.FinishReason,
	}
	out.Sources = toProtoSources(candidate.GroundingMetadata)
	return out, nil
}

func toProtoSources(md *GroundingMetadata) []proto.Source {
	if md == nil {
		return nil
	}
	var sources []proto.Source
	for _, chunk := range md.GroundingChunks {
		if chunk.Web == nil {
			continue
		}
		sources = append(sources, proto.Source{
			Title: chunk.Web.Title,
			URI:   chunk.Web.URI,
		})
	}
	return sources
}
