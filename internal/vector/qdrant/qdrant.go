package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/efebarandurmaz/sportsqa/internal/vector"
)

// pointNamespace derives stable point UUIDs from document IDs, so re-upserting
// a document replaces its point instead of adding a new one.
var pointNamespace = uuid.MustParse("6f1c8a52-4d3e-4c1b-9a57-2b7e0d9c3f10")

const (
	payloadDocID   = "doc_id"
	payloadContent = "content"
)

// Repository implements vector.Repository using Qdrant over gRPC.
type Repository struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	space       vector.Space
}

// New connects to a Qdrant gRPC endpoint.
func New(host string, port int, collection string, space vector.Space) (*Repository, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &Repository{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		space:       space,
	}, nil
}

func distanceFor(space vector.Space) pb.Distance {
	switch space {
	case vector.SpaceCosine:
		return pb.Distance_Cosine
	case vector.SpaceIP:
		return pb.Distance_Dot
	default:
		return pb.Distance_Euclid
	}
}

// toDistance maps a Qdrant score onto the repository's lower-is-closer scale.
func toDistance(space vector.Space, score float32) float64 {
	s := float64(score)
	switch space {
	case vector.SpaceCosine, vector.SpaceIP:
		return 1 - s
	default:
		// Qdrant reports plain Euclidean distance; the l2 space is squared.
		return s * s
	}
}

// PointID returns the Qdrant point UUID for a document ID.
func PointID(collection, docID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(collection+"/"+docID)).String()
}

func (r *Repository) EnsureCollection(ctx context.Context, dims int) error {
	exists, err := r.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: r.collection})
	if err != nil {
		return fmt.Errorf("qdrant: check collection %s: %w", r.collection, err)
	}

	if exists.GetResult().GetExists() {
		info, err := r.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: r.collection})
		if err != nil {
			return fmt.Errorf("qdrant: get collection %s: %w", r.collection, err)
		}
		size := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size != 0 && size != uint64(dims) {
			return fmt.Errorf("%w: collection %s has %d, got %d", vector.ErrDimensionMismatch, r.collection, size, dims)
		}
		return nil
	}

	_, err = r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{
				Size:     uint64(dims),
				Distance: distanceFor(r.space),
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", r.collection, err)
	}
	return nil
}

func (r *Repository) Upsert(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}
	points := make([]*pb.PointStruct, len(docs))
	for i, d := range docs {
		payload := map[string]*pb.Value{
			payloadDocID:   {Kind: &pb.Value_StringValue{StringValue: d.ID}},
			payloadContent: {Kind: &pb.Value_StringValue{StringValue: d.Content}},
		}
		for k, v := range d.Metadata {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(r.collection, d.ID)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: d.Vector}}},
			Payload: payload,
		}
	}

	wait := true
	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (r *Repository) Search(ctx context.Context, vec []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		return []vector.Match{}, nil
	}
	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vec,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	return r.toMatches(resp.GetResult(), topK), nil
}

func (r *Repository) toMatches(points []*pb.ScoredPoint, topK int) []vector.Match {
	matches := make([]vector.Match, 0, len(points))
	for _, pt := range points {
		m := vector.Match{
			ID:       pt.GetId().GetUuid(),
			Distance: toDistance(r.space, pt.GetScore()),
		}
		for k, v := range pt.GetPayload() {
			switch k {
			case payloadDocID:
				m.ID = v.GetStringValue()
			case payloadContent:
				m.Content = v.GetStringValue()
			default:
				if m.Metadata == nil {
					m.Metadata = make(map[string]string)
				}
				m.Metadata[k] = v.GetStringValue()
			}
		}
		matches = append(matches, m)
	}
	return vector.TopK(matches, topK)
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := r.points.Count(ctx, &pb.CountPoints{
		CollectionName: r.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func (r *Repository) Close() error {
	return r.conn.Close()
}

var _ vector.Repository = (*Repository)(nil)
