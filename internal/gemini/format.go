package gemini

import (
	"github.com/antoto2021/nexus/internal/proto"
	"github.com/antoto2021/nexus/internal/provider"
	"google.golang.org/genai"
)

func fromProtoMessages(input []proto.Message) []*genai.Content {
	result := make([]*genai.Content, 0, len(input))
	for _, in := range input {
		if in.Content == "" {
			continue
		}
		switch in.Role {
		case proto.RoleSystem, proto.RoleUser:
			result = append(result, genai.NewContentFromText(in.Content, genai.RoleUser))
		case proto.RoleAssistant:
			result = append(result, genai.NewContentFromText(in.Content, genai.RoleModel))
		}
	}
	return result
}

func toProtoResponse(model string, resp *genai.GenerateContentResponse) (proto.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return proto.Response{}, provider.ErrNoContent
	}
	text := resp.Text()
	if text == "" {
		return proto.Response{}, provider.ErrNoContent
	}
	candidate := resp.Candidates[0]
	out := proto.Response{
		Model:        model,
		Content:      text,
		FinishReason: string(candidate.FinishReason),
	}
	out.Sources = toProtoSources(candidate.GroundingMetadata)
	return out, nil
}

func toProtoSources(md *genai.GroundingMetadata) []proto.Source {
	if md == nil {
		return nil
	}
	var sources []proto.Source
	for _, chunk := range md.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		sources = append(sources, proto.Source{
			Title: chunk.Web.Title,
			URI:   chunk.Web.URI,
		})
	}
	return sources
}
