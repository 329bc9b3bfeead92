// Package mongodb archives solved power flow results to a MongoDB
// collection, one upsert per model type.
package mongodb

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"sync"
	"time"

	"github.com/amir013/opf/internal/pkg/msg"
	"github.com/amir013/opf/internal/pkg/report"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Handler subscribes to the orchestrator's result stream and writes
// each document into the configured database.
type Handler struct {
	mux    *sync.Mutex
	inbox  <-chan msg.Msg
	pid    uuid.UUID
	config config
	stop   chan bool
}

type config struct {
	URI        string `json:"URI"`
	Port       string `json:"Port"`
	Database   string `json:"Database"`
	Collection string `json:"Collection"`
}

// New reads the database configuration and subscribes to the result
// topic of the given publisher.
func New(configPath string, system msg.Publisher) (Handler, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return Handler{}, err
	}
	cfg := config{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return Handler{}, err
	}
	if cfg.Collection == "" {
		cfg.Collection = "solveResults"
	}

	pid, err := uuid.NewUUID()
	if err != nil {
		return Handler{}, err
	}

	inbox, err := system.Subscribe(pid, msg.Result)
	if err != nil {
		return Handler{}, err
	}

	return Handler{
		mux:    &sync.Mutex{},
		inbox:  inbox,
		pid:    pid,
		config: cfg,
		stop:   make(chan bool),
	}, nil
}

// StopProcess terminates the Process loop.
func (h *Handler) StopProcess() {
	h.stop <- true
}

// Process consumes the result stream until stopped. Connection issues
// are logged and the loop keeps draining; the orchestrator's problem
// objects remain valid independent of archive availability.
func (h Handler) Process() {
	client, err := mongo.NewClient(options.Client().ApplyURI(h.config.URI + ":" + h.config.Port))
	if err != nil {
		log.Println("[MongoDB]", err)
		return
	}

	ctx := context.TODO()
	if err := client.Connect(ctx); err != nil {
		log.Println("[MongoDB]", err)
		return
	}
	defer client.Disconnect(ctx)

	results := client.Database(h.config.Database).Collection(h.config.Collection)
loop:
	for {
		select {
		case m := <-h.inbox:
			doc, ok := m.Payload().(report.Document)
			if !ok {
				log.Println("[MongoDB] dropped payload of unexpected type")
				continue
			}
			opts := options.Update().SetUpsert(true)
			_, err := results.UpdateOne(
				ctx,
				bson.M{"model_type": doc.ModelType, "team_name": doc.TeamName},
				resultToBSON(doc),
				opts,
			)
			if err != nil {
				log.Println("[MongoDB]", err)
			}
		case <-h.stop:
			break loop
		}
	}
	log.Println("[MongoDB] Process Shutdown")
}

func resultToBSON(doc report.Document) bson.D {
	nodes := bson.M{}
	for k, n := range doc.Nodes {
		nodes[k] = bson.M{
			"voltage_angle":     n.VoltageAngle,
			"power":             n.Power,
			"voltage_magnitude": n.VoltageMagnitude,
			"reactive_power":    n.ReactivePower,
		}
	}
	return bson.D{
		{Key: "$set", Value: bson.M{
			"team_name":  doc.TeamName,
			"model_type": doc.ModelType,
			"nodes":      nodes,
			"total_cost": doc.TotalCost,
			"solved_at":  time.Now().UTC(),
		}},
	}
}
