package main

import (
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/practice-sync/internal/entity"
	"github.com/xavierca1/practice-sync/internal/infra/database"
	"github.com/xavierca1/practice-sync/internal/infra/filestore"
	"github.com/xavierca1/practice-sync/internal/infra/http/handlers"
	"github.com/xavierca1/practice-sync/internal/infra/http/middleware"
	"github.com/xavierca1/practice-sync/internal/infra/integration/intakeq"
	"github.com/xavierca1/practice-sync/internal/infra/integration/vtiger"
	"github.com/xavierca1/practice-sync/internal/infra/mail"
	"github.com/xavierca1/practice-sync/internal/infra/queue"
	"github.com/xavierca1/practice-sync/internal/infra/ratelimit"
	"github.com/xavierca1/practice-sync/internal/usecase"
)

func main() {
	godotenv.Load()

	db, err := database.NewDBConnection(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	rabbitMQ, err := queue.NewRabbitMQ(
		envOr("RABBITMQ_USER", "user"),
		envOr("RABBITMQ_PASS", "password"),
		envOr("RABBITMQ_HOST", "localhost"),
		envOr("RABBITMQ_PORT", "5672"),
	)
	if err != nil {
		panic(err)
	}
	defer rabbitMQ.Conn.Close()
	defer rabbitMQ.Ch.Close()

	// 1. Repositórios
	practiceRepo := database.NewPracticeRepository(db)
	appointmentRepo := database.NewAppointmentRepository(db)
	leadRepo := database.NewLeadRepository(db)

	// 2. Cursores em disco (um diretório por practice)
	cursors := filestore.NewStore(envOr("DATA_DIR", "data"))

	// 3. Factories dos clients externos (credenciais são por practice)
	sourceFactory := usecase.AppointmentSourceFactory(func(apiKey, apiURL string) usecase.AppointmentSource {
		pacer := ratelimit.NewPacer(ratelimit.DefaultInterval, ratelimit.DefaultJitter)
		return intakeq.NewClient(apiKey, apiURL, ratelimit.NewClient(pacer))
	})

	crmFactory := usecase.CRMGatewayFactory(func(p *entity.Practice, dataDir string) usecase.CRMGateway {
		session := vtiger.NewSessionManager(p.VtigerURL, p.VtigerUsername, p.VtigerAccessKey, dataDir)
		return vtiger.NewClient(p.VtigerURL, session)
	})

	producer := queue.NewProducer(rabbitMQ.Conn, rabbitMQ.Ch)

	// 4. UseCases
	syncAppointmentsUC := usecase.NewSyncAppointmentsUseCase(practiceRepo, appointmentRepo, cursors, sourceFactory)
	syncLeadsUC := usecase.NewSyncLeadsUseCase(practiceRepo, leadRepo, cursors, crmFactory)
	compareUC := usecase.NewCompareUseCase(appointmentRepo, leadRepo, cursors, crmFactory)

	// Report por email é opcional (só com MAIL_HOST configurado)
	var reporter queue.ReportSender
	if host := os.Getenv("MAIL_HOST"); host != "" {
		port, _ := strconv.Atoi(envOr("MAIL_PORT", "587"))
		reporter = mail.NewEmailSender(
			host, port,
			os.Getenv("MAIL_USER"), os.Getenv("MAIL_PASS"),
			envOr("MAIL_FROM", "nao-responda@practicesync.com"),
			os.Getenv("REPORT_EMAIL_TO"),
		)
	}

	// 5. Worker (consome a fila de jobs e roda os engines)
	worker := queue.NewWorker(rabbitMQ.Ch, syncAppointmentsUC, syncLeadsUC, compareUC, practiceRepo, reporter)
	go worker.Start(queue.QueueName)

	// 6. Handlers
	practiceHandler := handlers.NewPracticeHandler(practiceRepo, appointmentRepo, leadRepo)
	syncHandler := handlers.NewSyncHandler(practiceRepo, producer, cursors)
	compareHandler := handlers.NewCompareHandler(practiceRepo, compareUC, producer)
	healthHandler := handlers.NewHealthHandler(db, rabbitMQ.Conn)

	// 7. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}))
	r.Use(middleware.Metrics)

	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/practices", func(r chi.Router) {
			r.Post("/", practiceHandler.CreateHandler)
			r.Get("/", practiceHandler.ListHandler)
			r.Get("/{id}", practiceHandler.GetHandler)
			r.Put("/{id}/vtiger", practiceHandler.UpdateVtigerHandler)
			r.Put("/{id}/intakeq", practiceHandler.UpdateIntakeQHandler)
			r.Get("/{id}/appointments", practiceHandler.ListAppointmentsHandler)
			r.Get("/{id}/leads", practiceHandler.ListLeadsHandler)
		})

		r.Post("/appointments/sync", syncHandler.SyncAppointmentsHandler)
		r.Get("/appointments/all/{practice}", syncHandler.AllAppointmentsHandler)

		r.Post("/leads/sync", syncHandler.SyncLeadsHandler)
		r.Get("/leads/all/{practice}", syncHandler.AllLeadsHandler)

		r.Get("/compare/{id}", compareHandler.GetHandler)
		r.Post("/compare/sync", compareHandler.SyncHandler)
	})

	port := ":" + envOr("PORT", "8080")
	log.Printf("🔥 Server PracticeSync rodando na porta %s", port)
	http.ListenAndServe(port, r)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
