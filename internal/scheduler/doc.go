// Package scheduler взводит триггер RUN для триггерных задач по расписанию.
//
// Задача в триггерном режиме выполняет итерацию только когда RUN=true.
// Scheduler следит за cron-расписаниями (параметр schedule в дескрипторе)
// и в нужный момент пишет RUN=true во владеющую задачу — так же, как это
// сделал бы внешний клиент.
//
// Структура:
//   - scheduler.go — основная логика Scheduler (Tick, processEntry)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Trigger: orch.ExternalWrite,
//	    Logger:  logger,
//	})
//	sched.Add("SCAN01", "*/5 * * * *")
//	sched.Start(ctx)
//	defer sched.Stop()
package scheduler
