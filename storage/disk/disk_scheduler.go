package disk

import "sync"

// Scheduler serializes concurrent read/write requests onto the Manager, one
// worker goroutine per page with requests currently in flight. The buffer
// pool calls Schedule and blocks on the returned channel, so from its point
// of view disk I/O still happens synchronously under its own mutex — the
// scheduler only exists to let requests for different pages proceed
// concurrently.
type Scheduler struct {
	reqCh   chan Request
	manager *Manager

	queuesMu sync.Mutex
	queues   map[PageID]chan Request
}

// Request is a single read or write, answered on RespCh.
type Request struct {
	PageID PageID
	Data   []byte
	Write  bool
	RespCh chan Response
}

// Response answers a Request. Data is populated for reads only.
type Response struct {
	Success bool
	Data    []byte
}

// NewScheduler starts a Scheduler's dispatch loop over manager.
func NewScheduler(manager *Manager) *Scheduler {
	s := &Scheduler{
		reqCh:   make(chan Request, 100),
		manager: manager,
		queues:  make(map[PageID]chan Request),
	}
	go s.dispatch()
	return s
}

// NewReadRequest builds a Request that reads pageID.
func NewReadRequest(pageID PageID) Request {
	return Request{PageID: pageID, RespCh: make(chan Response, 1)}
}

// NewWriteRequest builds a Request that writes data to pageID.
func NewWriteRequest(pageID PageID, data []byte) Request {
	return Request{PageID: pageID, Data: data, Write: true, RespCh: make(chan Response, 1)}
}

// Schedule enqueues req and returns the channel its Response will arrive on.
func (s *Scheduler) Schedule(req Request) <-chan Response {
	s.reqCh <- req
	return req.RespCh
}

// AllocatePage reserves a fresh PageID on the underlying Manager. Page id
// allocation isn't a per-page read/write, so it bypasses the queueing and
// goes straight to the Manager.
func (s *Scheduler) AllocatePage() PageID {
	return s.manager.AllocatePage()
}

// DeallocatePage frees pageID's backing storage on the underlying Manager.
func (s *Scheduler) DeallocatePage(pageID PageID) {
	s.manager.DeallocatePage(pageID)
}

func (s *Scheduler) dispatch() {
	for req := range s.reqCh {
		s.queuesMu.Lock()
		queue, exists := s.queues[req.PageID]
		if !exists {
			queue = make(chan Request, 16)
			s.queues[req.PageID] = queue
		}
		s.queuesMu.Unlock()

		queue <- req
		if !exists {
			go s.pageWorker(req.PageID, queue)
		}
	}
}

func (s *Scheduler) pageWorker(pageID PageID, queue chan Request) {
	for {
		select {
		case req := <-queue:
			if req.Write {
				err := s.manager.WritePage(req.PageID, req.Data)
				req.RespCh <- Response{Success: err == nil}
				continue
			}
			buf := make([]byte, PageSize)
			err := s.manager.ReadPage(req.PageID, buf)
			req.RespCh <- Response{Success: err == nil, Data: buf}
		default:
			s.queuesMu.Lock()
			delete(s.queues, pageID)
			s.queuesMu.Unlock()
			return
		}
	}
}
