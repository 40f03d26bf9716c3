package chat

import "net/http"

// widgetJS is the embeddable chat widget. Businesses add one script tag:
//
//	<script src="https://<host>/widget.js" data-business="mon-salon" async></script>
//
// The script derives the API base from its own src and keeps the session id
// in sessionStorage so a page reload continues the same conversation.
const widgetJS = `(function () {
  'use strict';

  var script = document.currentScript;
  if (!script) { return; }
  var business = script.getAttribute('data-business');
  if (!business) {
    console.warn('vitrine-widget: attribut data-business manquant');
    return;
  }
  var base = script.src.replace(/\/widget\.js.*$/, '');
  var storageKey = 'vitrine_session_' + business;

  var style = document.createElement('style');
  style.textContent =
    '.vw-bubble{position:fixed;bottom:20px;right:20px;width:56px;height:56px;border-radius:50%;' +
    'background:#4f46e5;color:#fff;border:none;cursor:pointer;font-size:24px;box-shadow:0 4px 12px rgba(0,0,0,.25);z-index:99998}' +
    '.vw-panel{position:fixed;bottom:88px;right:20px;width:320px;max-height:480px;display:none;flex-direction:column;' +
    'background:#fff;border-radius:12px;box-shadow:0 8px 24px rgba(0,0,0,.2);overflow:hidden;z-index:99999;font-family:system-ui,sans-serif}' +
    '.vw-panel.vw-open{display:flex}' +
    '.vw-header{background:#4f46e5;color:#fff;padding:12px 16px;font-weight:600}' +
    '.vw-messages{flex:1;overflow-y:auto;padding:12px;display:flex;flex-direction:column;gap:8px;min-height:200px}' +
    '.vw-msg{max-width:85%;padding:8px 12px;border-radius:12px;font-size:14px;line-height:1.4;white-space:pre-wrap}' +
    '.vw-msg.vw-user{align-self:flex-end;background:#4f46e5;color:#fff}' +
    '.vw-msg.vw-bot{align-self:flex-start;background:#f1f5f9;color:#111}' +
    '.vw-form{display:flex;border-top:1px solid #e2e8f0}' +
    '.vw-input{flex:1;border:none;padding:12px;font-size:14px;outline:none}' +
    '.vw-send{border:none;background:none;color:#4f46e5;font-weight:600;padding:0 16px;cursor:pointer}';
  document.head.appendChild(style);

  var bubble = document.createElement('button');
  bubble.className = 'vw-bubble';
  bubble.setAttribute('aria-label', 'Ouvrir le chat');
  bubble.textContent = '💬';

  var panel = document.createElement('div');
  panel.className = 'vw-panel';
  panel.innerHTML =
    '<div class="vw-header">Discutez avec nous</div>' +
    '<div class="vw-messages"></div>' +
    '<form class="vw-form"><input class="vw-input" type="text" ' +
    'placeholder="Votre message..." autocomplete="off"><button class="vw-send" type="submit">Envoyer</button></form>';

  document.body.appendChild(bubble);
  document.body.appendChild(panel);

  var messages = panel.querySelector('.vw-messages');
  var form = panel.querySelector('.vw-form');
  var input = panel.querySelector('.vw-input');
  var greeted = false;

  function addMessage(text, who) {
    var el = document.createElement('div');
    el.className = 'vw-msg vw-' + who;
    el.textContent = text;
    messages.appendChild(el);
    messages.scrollTop = messages.scrollHeight;
  }

  bubble.addEventListener('click', function () {
    panel.classList.toggle('vw-open');
    if (panel.classList.contains('vw-open')) {
      if (!greeted) {
        greeted = true;
        addMessage('Bonjour ! Posez-moi une question ou dites « je veux réserver ».', 'bot');
      }
      input.focus();
    }
  });

  form.addEventListener('submit', function (ev) {
    ev.preventDefault();
    var text = input.value.trim();
    if (!text) { return; }
    input.value = '';
    addMessage(text, 'user');

    var payload = { business_slug: business, message: text };
    var session = sessionStorage.getItem(storageKey);
    if (session) { payload.session_id = session; }

    fetch(base + '/webchat/message', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(payload)
    })
      .then(function (res) { return res.json(); })
      .then(function (data) {
        if (data.session_id) { sessionStorage.setItem(storageKey, data.session_id); }
        if (data.reply && data.reply.text) {
          addMessage(data.reply.text, 'bot');
        } else if (data.error) {
          addMessage(data.error, 'bot');
        }
      })
      .catch(function () {
        addMessage('Désolé, le service est momentanément indisponible.', 'bot');
      });
  });
})();
`

// HandleWidgetJS handles GET /widget.js. The script is embeddable from any
// origin, hence the permissive CORS header.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write([]byte(widgetJS))
}
