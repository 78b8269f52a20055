// Package health поднимает gRPC сервер со стандартным сервисом grpc.health.v1.Health.
package health

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName имя сервиса, под которым публикуется статус приложения
const ServiceName = "route-traffic"

// Checker проверка готовности зависимости (например, базы данных)
type Checker func() error

// Server gRPC сервер проверки здоровья
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	logger     *logrus.Logger
	checkers   map[string]Checker

	mu       sync.Mutex
	cancel   context.CancelFunc
	draining bool
}

// NewServer создает сервер проверки здоровья
func NewServer(logger *logrus.Logger) *Server {
	s := &Server{
		grpcServer: grpc.NewServer(),
		health:     health.NewServer(),
		logger:     logger,
		checkers:   make(map[string]Checker),
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.SetServing(true)
	return s
}

// AddChecker регистрирует проверку зависимости
func (s *Server) AddChecker(name string, check Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = check
}

// SetServing выставляет общий статус приложения
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Check выполняет все зарегистрированные проверки и возвращает их ошибки по имени
func (s *Server) Check() map[string]error {
	s.mu.Lock()
	checkers := make(map[string]Checker, len(s.checkers))
	for name, check := range s.checkers {
		checkers[name] = check
	}
	s.mu.Unlock()

	failures := make(map[string]error)
	for name, check := range checkers {
		if err := check(); err != nil {
			failures[name] = err
		}
	}

	s.mu.Lock()
	draining := s.draining
	s.mu.Unlock()
	if !draining {
		s.SetServing(len(failures) == 0)
	}
	return failures
}

// Serve принимает соединения на адресе addr. Блокирует до остановки сервера.
func (s *Server) Serve(addr string, checkInterval time.Duration) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.ServeListener(lis, checkInterval)
}

// ServeListener принимает соединения на готовом listener
func (s *Server) ServeListener(lis net.Listener, checkInterval time.Duration) error {
	if checkInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		s.mu.Lock()
		if s.draining {
			cancel()
		} else {
			s.cancel = cancel
			go s.watch(ctx, checkInterval)
		}
		s.mu.Unlock()
	}

	s.logger.Infof("gRPC health сервер запущен на %s", lis.Addr())
	return s.grpcServer.Serve(lis)
}

// watch периодически обновляет статус по результатам проверок
func (s *Server) watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for name, err := range s.Check() {
				s.logger.WithField("dependency", name).WithError(err).Warn("Проверка здоровья не прошла")
			}
		}
	}
}

// Drain останавливает периодические проверки и переводит статус в NOT_SERVING.
// После Drain статус больше не меняется, сервер продолжает отвечать до Stop.
func (s *Server) Drain() {
	s.stopWatch()
	s.SetServing(false)
	s.logger.Info("gRPC health сервер переведен в NOT_SERVING")
}

func (s *Server) stopWatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draining = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Stop переводит статус в NOT_SERVING и останавливает сервер
func (s *Server) Stop() {
	s.stopWatch()
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
	s.logger.Info("gRPC health сервер остановлен")
}
